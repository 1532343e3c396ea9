package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

func withTempWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
	return dir
}

func TestOverlay_RoundTrip(t *testing.T) {
	withTempWorkdir(t)

	o, err := NewOverlay("testapp")
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}

	u16 := make([]types.PersistedSample, 7)
	for i := range u16 {
		u16[i] = types.PersistedSample{Index: i, Value: uint16(17 * i)}
	}
	o.Record(1, "/u16", types.Uint16, u16)

	f32 := make([]types.PersistedSample, 42)
	for i := range f32 {
		f32[i] = types.PersistedSample{Index: i, Value: float32(float64(i) * 3.14159)}
	}
	o.Record(2, "/f32", types.Float32, f32)

	if err := o.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := NewOverlay("testapp")
	if err != nil {
		t.Fatalf("NewOverlay (reload): %v", err)
	}

	gotU16, ok := LoadInto[uint16](reopened, "/u16", 7)
	if !ok {
		t.Fatalf("expected /u16 to reload")
	}
	for i, v := range gotU16 {
		if v != uint16(17*i) {
			t.Errorf("u16[%d] = %d, want %d", i, v, 17*i)
		}
	}

	gotF32, ok := LoadInto[float32](reopened, "/f32", 42)
	if !ok {
		t.Fatalf("expected /f32 to reload")
	}
	for i, v := range gotF32 {
		want := float32(float64(i) * 3.14159)
		if v != want {
			t.Errorf("f32[%d] = %v, want %v", i, v, want)
		}
	}

	if _, ok := LoadInto[int32](reopened, "/i32", 7); ok {
		t.Errorf("expected unregistered /i32 to not reload")
	}
}

func TestOverlay_MissingFileIsNotAnError(t *testing.T) {
	withTempWorkdir(t)

	o, err := NewOverlay("doesnotexist")
	if err != nil {
		t.Fatalf("expected missing persistence file to be tolerated, got %v", err)
	}
	if _, ok := LoadInto[int32](o, "/anything", 1); ok {
		t.Errorf("expected no values from a fresh overlay")
	}
}

func TestOverlay_TypeMismatchFallsBackToDefaults(t *testing.T) {
	withTempWorkdir(t)

	o, err := NewOverlay("typemismatch")
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	o.Record(1, "/x", types.Int32, []types.PersistedSample{{Index: 0, Value: int32(9)}})
	if err := o.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := NewOverlay("typemismatch")
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	if _, ok := LoadInto[float32](reopened, "/x", 1); ok {
		t.Errorf("expected a type mismatch to be rejected, not silently coerced")
	}
}

func TestOverlay_SaveWritesAtomically(t *testing.T) {
	dir := withTempWorkdir(t)

	o, err := NewOverlay("atomicapp")
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	o.Record(1, "/x", types.Bool, []types.PersistedSample{{Index: 0, Value: true}})
	if err := o.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "atomicapp.persist.tmp")); !os.IsNotExist(err) {
		t.Errorf("expected the temporary file to be renamed away after Save")
	}
	if _, err := os.Stat(filepath.Join(dir, "atomicapp.persist")); err != nil {
		t.Errorf("expected the final persistence file to exist: %v", err)
	}
}
