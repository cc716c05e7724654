package memory_test

import (
	"testing"
	"time"

	"github.com/dropDatabas3/hellosso/internal/cache/memory"
)

func TestSetGetDelete(t *testing.T) {
	c := memory.New(time.Minute)

	c.Set("k", []byte("valor"), 0)
	got, ok := c.Get("k")
	if !ok || string(got) != "valor" {
		t.Fatalf("Get tras Set: got=%q ok=%v", got, ok)
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("la key debería desaparecer tras Delete")
	}
}

func TestGetMissing(t *testing.T) {
	c := memory.New(time.Minute)
	if _, ok := c.Get("no-existe"); ok {
		t.Fatalf("una key nunca guardada no puede existir")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := memory.New(time.Minute)

	c.Set("efimera", []byte("x"), 10*time.Millisecond)
	if _, ok := c.Get("efimera"); !ok {
		t.Fatalf("la key debería estar viva dentro del TTL")
	}

	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("efimera"); ok {
		t.Fatalf("la key debería expirar pasado el TTL")
	}
}

func TestOverwrite(t *testing.T) {
	c := memory.New(time.Minute)

	c.Set("k", []byte("v1"), 0)
	c.Set("k", []byte("v2"), 0)
	got, ok := c.Get("k")
	if !ok || string(got) != "v2" {
		t.Fatalf("Set sobre key existente debe pisar el valor: got=%q ok=%v", got, ok)
	}
}
