package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	if NewKey("col.bin", 40) != NewKey("col.bin", 40) {
		t.Fatal("same inputs hashed differently")
	}
	if NewKey("col.bin", 40) == NewKey("col.bin", 41) {
		t.Fatal("offset collision")
	}
	if NewKey("col.bin", 40) == NewKey("col2.bin", 40) {
		t.Fatal("path collision")
	}
}

func TestGetSet(t *testing.T) {
	c := New(1 << 20)
	k := NewKey("f", 0)

	if c.Get(k) != nil {
		t.Fatal("hit on empty cache")
	}

	cell := &Cell{Data: []byte("abc"), CompressedSize: 20}
	c.Set(k, cell)
	if got := c.Get(k); got != cell {
		t.Fatal("wrong cell returned")
	}

	// a racing second fill is ignored, the first publication survives
	c.Set(k, &Cell{Data: []byte("abc"), CompressedSize: 20})
	if got := c.Get(k); got != cell {
		t.Fatal("second publication replaced the first")
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Blocks != 1 || st.SizeBytes != 3 {
		t.Fatalf("bad stats %+v", st)
	}
}

func TestEviction(t *testing.T) {
	c := New(1000)
	for i := 0; i < 20; i++ {
		c.Set(NewKey("f", int64(i)), &Cell{Data: make([]byte, 100), CompressedSize: 50})
	}
	st := c.Stats()
	if st.SizeBytes > 1000 {
		t.Fatal("byte budget exceeded:", st.SizeBytes)
	}
	if st.Blocks != 10 {
		t.Fatal("expected 10 resident blocks, have", st.Blocks)
	}
	// oldest gone, newest resident
	if c.Get(NewKey("f", 0)) != nil {
		t.Fatal("oldest entry survived")
	}
	if c.Get(NewKey("f", 19)) == nil {
		t.Fatal("newest entry evicted")
	}
}

func TestEvictedCellStaysValid(t *testing.T) {
	c := New(100)
	k := NewKey("f", 0)
	c.Set(k, &Cell{Data: []byte("held"), CompressedSize: 10})
	held := c.Get(k)

	// push the held cell out
	c.Set(NewKey("f", 1), &Cell{Data: make([]byte, 100), CompressedSize: 10})
	if c.Get(k) != nil {
		t.Fatal("expected eviction")
	}
	if string(held.Data) != "held" {
		t.Fatal("evicted cell mutated")
	}
}

func TestConcurrent(t *testing.T) {
	c := New(1 << 16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				k := NewKey("f", int64(i%37))
				cell := c.Get(k)
				if cell == nil {
					cell = &Cell{Data: []byte(fmt.Sprint(i % 37)), CompressedSize: 1}
					c.Set(k, cell)
				}
				if string(cell.Data) != fmt.Sprint(i%37) {
					panic("cross-key content")
				}
			}
		}(g)
	}
	wg.Wait()
}
