package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"daisy/core"
)

type readResponse struct {
	Result []byte `json:"result"`
}

type runRequest struct {
	Signature string `json:"signature"`  // base64 raw 64-byte R||S
	PublicKey string `json:"public_key"` // base64 DER SubjectPublicKeyInfo
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if core.IsNotFound(err) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

// HandleRead serves GET /read/:function/*args.
func (s *Server) HandleRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	inv := core.Invocation{Function: vars["function"], Args: argsFromVars(vars["args"])}

	result, err := s.Tracker.Read(withCtx(r), inv)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{Result: result})
}

// HandlePrepare serves GET /prepare/:function/*args, returning the base64
// deterministic invocation payload an external signer needs.
func (s *Server) HandlePrepare(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	inv := core.Invocation{Function: vars["function"], Args: argsFromVars(vars["args"])}
	payload := core.EncodeInvocation(inv)
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(base64.StdEncoding.EncodeToString(payload)))
}

// HandleRun serves POST /run/:function/*args, accepting a signed
// transaction and queuing it on the leader's open block.
func (s *Server) HandleRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	inv := core.Invocation{Function: vars["function"], Args: argsFromVars(vars["args"])}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		http.Error(w, "invalid signature encoding", http.StatusBadRequest)
		return
	}
	der, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		http.Error(w, "invalid public_key encoding", http.StatusBadRequest)
		return
	}
	pub, err := core.DecodeDERPublicKey(der)
	if err != nil {
		http.Error(w, "malformed public key: "+err.Error(), http.StatusBadRequest)
		return
	}

	tx := core.Transaction{Invocation: inv, Signature: &core.Signature{Sig: sig, Pub: pub}}
	if _, err := tx.Verify(); err != nil {
		http.Error(w, "invalid_signature", http.StatusBadRequest)
		return
	}
	if err := s.Tracker.AddTransaction(tx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// HandleReadAtBlock serves GET /read/block/:block_hash/:function/*args,
// reading against a specific historical block's final storage instead of
// the live tracker head.
func (s *Server) HandleReadAtBlock(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	blockHash := core.Hash(vars["block_hash"])
	inv := core.Invocation{Function: vars["function"], Args: argsFromVars(vars["args"])}

	tree, err := s.Storage.GetAll(withCtx(r), blockHash, "")
	if err != nil {
		writeError(w, err)
		return
	}
	block, err := core.DeserializeBlock(tree)
	if err != nil {
		writeError(w, err)
		return
	}
	root := block.FinalStorage
	if root.Empty() {
		root = block.InitialStorage
	}

	result, err := s.Reader.Read(withCtx(r), inv, s.Storage, root)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{Result: result})
}
