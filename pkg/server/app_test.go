package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xhttp "Foresight/pkg/http"
)

func TestRunContextLifecycle(t *testing.T) {
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(nil, srv, nil)

	var mu sync.Mutex
	var order []string
	jobStopped := make(chan struct{})
	app.AddJob(func(ctx context.Context) {
		<-ctx.Done()
		close(jobStopped)
	})
	app.AddCloser("first", func() error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "first")
		return nil
	})
	app.AddCloser("second", func() error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "second")
		return errors.New("already closed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}

	select {
	case <-jobStopped:
	default:
		t.Fatal("job was not cancelled")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}
