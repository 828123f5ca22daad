// File: server/registry_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server_test

import (
	"sync"
	"testing"

	"github.com/momentics/reactor-ws/api"
	"github.com/momentics/reactor-ws/fake"
	"github.com/momentics/reactor-ws/server"
)

func TestRegistryAddRemove(t *testing.T) {
	reg := server.NewRegistry()
	a := fake.NewConn(1, "stub:1")
	b := fake.NewConn(2, "stub:2")

	reg.Add(a)
	reg.Add(b)
	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reg.Len())
	}

	reg.Remove(a)
	reg.Remove(a) // unknown removal is a no-op
	if reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", reg.Len())
	}
}

func TestRegistryForEach(t *testing.T) {
	reg := server.NewRegistry()
	conns := []*fake.Conn{
		fake.NewConn(1, "stub:1"),
		fake.NewConn(2, "stub:2"),
		fake.NewConn(3, "stub:3"),
	}
	for _, c := range conns {
		reg.Add(c)
	}

	reg.ForEach(func(c api.Conn) {
		if err := c.SendText("ping"); err != nil {
			t.Errorf("send: %v", err)
		}
	})
	for _, c := range conns {
		if sent := c.SentTexts(); len(sent) != 1 || sent[0] != "ping" {
			t.Errorf("conn %d sent = %v, want one ping", c.ID(), sent)
		}
	}
}

// ForEach snapshots under the lock, so a callback may mutate the registry
// without deadlocking.
func TestRegistryForEachReentrant(t *testing.T) {
	reg := server.NewRegistry()
	reg.Add(fake.NewConn(1, "stub:1"))

	reg.ForEach(func(c api.Conn) {
		reg.Remove(c)
	})
	if reg.Len() != 0 {
		t.Fatalf("Len = %d, want 0", reg.Len())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := server.NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := fake.NewConn(base*1000+j, "stub:0")
				reg.Add(c)
				reg.ForEach(func(api.Conn) {})
				reg.Remove(c)
			}
		}(i)
	}
	wg.Wait()

	if reg.Len() != 0 {
		t.Fatalf("Len = %d after balanced add/remove, want 0", reg.Len())
	}
}
