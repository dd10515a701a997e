package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/asyncload/pkg/store"
)

func TestStore_WriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	data := []byte("name: /Game/Hero\n")
	if err := s.WritePackage(ctx, "/Game/Hero", data); err != nil {
		t.Fatalf("WritePackage failed: %v", err)
	}

	read, err := s.ReadPackage(ctx, "/Game/Hero")
	if err != nil {
		t.Fatalf("ReadPackage failed: %v", err)
	}
	if string(read) != string(data) {
		t.Errorf("ReadPackage returned %q, want %q", read, data)
	}

	// Mutating the returned slice must not affect the store
	read[0] = 'X'
	again, _ := s.ReadPackage(ctx, "/Game/Hero")
	if string(again) != string(data) {
		t.Errorf("store content was mutated through returned slice")
	}
}

func TestStore_ReadNotFound(t *testing.T) {
	s := New()
	defer s.Close()

	_, err := s.ReadPackage(context.Background(), "/missing")
	if !errors.Is(err, store.ErrPackageNotFound) {
		t.Errorf("ReadPackage returned error %v, want %v", err, store.ErrPackageNotFound)
	}
}

func TestStore_InvalidName(t *testing.T) {
	s := New()
	defer s.Close()

	for _, name := range []string{"", "/", "/a/../b", "/a//b"} {
		if err := s.WritePackage(context.Background(), name, nil); !errors.Is(err, store.ErrInvalidName) {
			t.Errorf("WritePackage(%q) returned %v, want ErrInvalidName", name, err)
		}
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	for _, name := range []string{"/b", "/a", "/c/d"} {
		if err := s.WritePackage(ctx, name, []byte(name)); err != nil {
			t.Fatalf("WritePackage(%s) failed: %v", name, err)
		}
	}

	names, err := s.ListPackages(ctx)
	if err != nil {
		t.Fatalf("ListPackages failed: %v", err)
	}
	want := []string{"/a", "/b", "/c/d"}
	if len(names) != len(want) {
		t.Fatalf("ListPackages returned %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	if err := s.DeletePackage(ctx, "/a"); err != nil {
		t.Fatalf("DeletePackage failed: %v", err)
	}
	if err := s.DeletePackage(ctx, "/a"); err != nil {
		t.Errorf("DeletePackage of missing package should be nil, got %v", err)
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Close()

	if err := s.HealthCheck(ctx); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("HealthCheck after close = %v, want ErrStoreClosed", err)
	}
	if _, err := s.ReadPackage(ctx, "/a"); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("ReadPackage after close = %v, want ErrStoreClosed", err)
	}
	if err := s.WritePackage(ctx, "/a", nil); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("WritePackage after close = %v, want ErrStoreClosed", err)
	}
}
