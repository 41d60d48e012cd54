// Package inspect streams autoroute hook events to websocket clients.
//
// A Hub is both an http.Handler for the websocket endpoint and the source of
// request and response hooks:
//
//	hub := inspect.NewHub(inspect.Config{})
//	ar := autoroute.New(routers.NewChi, autoroute.DefaultActions,
//		autoroute.WithOnRequest(hub.OnRequest),
//		autoroute.WithOnResponse(hub.OnResponse),
//	)
//	mux.Handle("/_autoroute/inspect", hub)
//
// Every connected client receives one JSON text message per hook call.
// Slow clients lose events rather than delay requests.
package inspect
