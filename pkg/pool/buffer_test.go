package pool

import "testing"

func TestBufferPool(t *testing.T) {
	t.Run("Get returns buffers of the configured size", func(t *testing.T) {
		bp := NewBufferPool(4096)
		b := bp.Get()
		if len(*b) != 4096 {
			t.Errorf("expected buffer length 4096, got %d", len(*b))
		}
		if bp.Size() != 4096 {
			t.Errorf("expected Size() 4096, got %d", bp.Size())
		}
		bp.Put(b)
	})

	t.Run("Put restores full length of a resliced buffer", func(t *testing.T) {
		bp := NewBufferPool(1024)
		b := bp.Get()
		*b = (*b)[:10]
		bp.Put(b)
		if len(*b) != 1024 {
			t.Errorf("expected Put to restore length 1024, got %d", len(*b))
		}
	})

	t.Run("Put ignores nil and foreign buffers", func(t *testing.T) {
		bp := NewBufferPool(1024)
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Put panicked: %v", r)
			}
		}()
		bp.Put(nil)
		foreign := make([]byte, 512)
		bp.Put(&foreign)
		if len(foreign) != 512 {
			t.Errorf("foreign buffer should be left untouched, got length %d", len(foreign))
		}
	})

	t.Run("Invalid size panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected NewBufferPool(0) to panic")
			}
		}()
		NewBufferPool(0)
	})
}
