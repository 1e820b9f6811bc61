// Package transport provides the HTTP surface of the gateway: the REST
// handlers for the model catalog, the middleware chain (recovery,
// request IDs, logging, CORS), and the server lifecycle with graceful
// shutdown. The websocket chat endpoint is mounted here but implemented
// in pkg/gateway.
package transport
