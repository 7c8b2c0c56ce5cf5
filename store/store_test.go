package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)

	code := []byte{0x01, 0x00, 0x2A, 0x07, 0x00, 0x00, 0x00, 0x15, 0x00}
	if err := s.Put("return_seven", code); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get("return_seven")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, code) {
		t.Errorf("Get = % x, want % x", got, code)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)

	_, err := s.Get("nope")
	if !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("Get = %v, want ErrProgramNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openTemp(t)

	if err := s.Put("p", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("p", []byte{4, 5}); err != nil {
		t.Fatalf("Put again: %v", err)
	}

	got, err := s.Get("p")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte{4, 5}) {
		t.Errorf("Get = % x, want the replacement", got)
	}
}

func TestList(t *testing.T) {
	s := openTemp(t)

	if err := s.Put("zeta", []byte{1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("alpha", []byte{2, 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List returned %d programs, want 2", len(infos))
	}
	if infos[0].Name != "alpha" || infos[1].Name != "zeta" {
		t.Errorf("names = %q, %q; want alpha, zeta (sorted)", infos[0].Name, infos[1].Name)
	}
	if infos[0].Size != 2 || infos[1].Size != 1 {
		t.Errorf("sizes = %d, %d; want 2, 1", infos[0].Size, infos[1].Size)
	}
	if infos[0].Hash == infos[1].Hash {
		t.Error("different programs share a hash")
	}
	if infos[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not recorded")
	}
}

func TestDelete(t *testing.T) {
	s := openTemp(t)

	if err := s.Put("p", []byte{1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete("p"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("p"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("Get after Delete = %v, want ErrProgramNotFound", err)
	}

	// Deleting a missing program is fine.
	if err := s.Delete("p"); err != nil {
		t.Errorf("Delete of missing program: %v", err)
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "programs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put("p", []byte{9, 9}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Get("p")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !bytes.Equal(got, []byte{9, 9}) {
		t.Errorf("Get = % x, want the stored program", got)
	}
}
