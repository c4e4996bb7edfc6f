package fcp_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pior/fcp"
)

func Example() {
	client, err := fcp.NewClient(fcp.Config{
		Nodes: []string{"127.0.0.1:8481"},
		Options: fcp.Options{
			HopsToLive: 15,
			Timeout:    2 * time.Minute,
		},
		NewCircuitBreaker: fcp.NewCircuitBreakerConfig(1, time.Minute, 30*time.Second),
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer client.Close()

	sink := fcp.NewFileSink("gpl.txt")
	res, err := client.Get(context.Background(), "freenet:KSK@gpl.txt", sink)
	switch {
	case fcp.IsNotFound(err):
		fmt.Println("not found")
	case errors.Is(err, fcp.ErrRetriesExhausted):
		fmt.Println("node too busy")
	case err != nil:
		fmt.Println(err)
	default:
		fmt.Printf("%s: %d bytes after %d redirects\n", res.ResolvedURI, res.Size, res.Redirects)
	}
}

func ExampleSession_FollowRedirects() {
	session := fcp.NewSession(fcp.SessionConfig{Node: "127.0.0.1:8481"})

	var data fcp.BufferSink
	key := &fcp.Key{DataSink: &data}
	if _, err := session.FollowRedirects(context.Background(), "freenet:KSK@gpl.txt", key); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(data.String())
}
