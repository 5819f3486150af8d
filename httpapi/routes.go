package httpapi

import "github.com/gorilla/mux"

// Register wires Daisy's HTTP façade routes — spec.md §6. The block-scoped
// read route is registered before the live-head one since both start with
// "/read/" and gorilla/mux matches in registration order.
func Register(r *mux.Router, s *Server) {
	r.HandleFunc("/read/block/{block_hash}/{function}/{args:.*}", s.HandleReadAtBlock).Methods("GET")
	r.HandleFunc("/read/{function}/{args:.*}", s.HandleRead).Methods("GET")
	r.HandleFunc("/prepare/{function}/{args:.*}", s.HandlePrepare).Methods("GET")
	r.HandleFunc("/run/{function}/{args:.*}", s.HandleRun).Methods("POST")
}
