// Package fcp is a client for the Freenet Client Protocol (FCP 1.x) of
// Freenet 0.5 nodes.
//
// A fetch sends a ClientGet to a node and streams the answer into two
// sinks, one for the key's metadata and one for its data. The node may ask
// the client to send the request again (Restarted, RouteNotFound) or may
// stay silent for a while: Session.GetFile handles both with a bounded
// retry budget. When the metadata redirects to another key,
// Session.FollowRedirects fetches the target, up to a bounded depth.
//
// Client wraps a pool of sessions for concurrent fetches over one or more
// nodes:
//
//	client, err := fcp.NewClient(fcp.Config{Nodes: []string{"127.0.0.1:8481"}})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	res, err := client.Get(ctx, "freenet:KSK@gpl.txt", fcp.NewFileSink("gpl.txt"))
//
// The wire format lives in the protocol package and the metadata format in
// the metadata package.
package fcp
