// Package remote implements the loader fetch contracts against a logpager
// HTTP server.
//
//	c := remote.New("http://127.0.0.1:8080")
//	a := loader.NewActor(ctx, "app/web", c, model)
//	_ = a.Send(loader.LoadInitial{})
package remote
