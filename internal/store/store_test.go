package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr())
	defer r.Close()

	if !r.Healthy(context.Background()) {
		t.Fatalf("expected miniredis to be healthy")
	}
	mr.Close()
	if r.Healthy(context.Background()) {
		t.Fatalf("expected closed server to be unhealthy")
	}
}

func TestNilHandlesAreUnhealthy(t *testing.T) {
	var r *Redis
	var d *DB
	if r.Healthy(context.Background()) || d.Healthy(context.Background()) {
		t.Fatalf("nil handles must report unhealthy")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
