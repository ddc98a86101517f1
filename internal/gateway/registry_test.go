package gateway

import (
	"testing"

	"socket-gateway/internal/models"
)

func TestConnectionRegistryUpdateMerges(t *testing.T) {
	reg := NewConnectionRegistry()

	t.Run("InsertFresh", func(t *testing.T) {
		reg.Update("c1", ConnectionUpdate{
			Application: ptr("rider-app"),
			Connected:   ptr(true),
			CoursesSent: ptr(false),
		})

		conn, ok := reg.Get("c1")
		if !ok {
			t.Fatal("connection should exist")
		}
		if conn.Application != "rider-app" || !conn.Connected {
			t.Errorf("unexpected connection: %+v", conn)
		}
	})

	t.Run("PartialUpdateKeepsOtherFields", func(t *testing.T) {
		reg.Update("c1", ConnectionUpdate{AccessToken: ptr("at"), RefreshToken: ptr("rt")})
		reg.Update("c1", ConnectionUpdate{RoomChannel: ptr("zone-1")})

		conn, _ := reg.Get("c1")
		if conn.AccessToken != "at" || conn.RefreshToken != "rt" {
			t.Error("token fields lost by unrelated update")
		}
		if conn.RoomChannel != "zone-1" {
			t.Error("room channel not applied")
		}
		if conn.Application != "rider-app" {
			t.Error("application lost by partial updates")
		}
	})

	t.Run("PointerToZeroClears", func(t *testing.T) {
		reg.Update("c1", ConnectionUpdate{
			RoomChannel: ptr(""),
			UserType:    ptr(models.UserType("")),
		})

		conn, _ := reg.Get("c1")
		if conn.RoomChannel != "" {
			t.Error("room channel should be cleared")
		}
		if conn.UserType.Valid() {
			t.Error("user type should be cleared")
		}
		if conn.AccessToken != "at" {
			t.Error("clearing one field must not touch others")
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		conn, _ := reg.Get("c1")
		conn.AccessToken = "mutated"

		fresh, _ := reg.Get("c1")
		if fresh.AccessToken != "at" {
			t.Error("registry state leaked through Get")
		}
	})
}

func TestConnectionRegistryRemove(t *testing.T) {
	reg := NewConnectionRegistry()
	reg.Update("c1", ConnectionUpdate{Connected: ptr(true)})

	if !reg.Remove("c1") {
		t.Error("remove should report the entry existed")
	}
	if reg.Remove("c1") {
		t.Error("second remove should report nothing to do")
	}
	if _, ok := reg.Get("c1"); ok {
		t.Error("connection should be gone")
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}
