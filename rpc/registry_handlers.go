package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"idregistry/native/registry"
)

type registrySetParams struct {
	Identity *registry.Identity `json:"identity,omitempty"`
	Label    *string            `json:"label"`
	Content  *string            `json:"content,omitempty"`
	Proof    *string            `json:"proof,omitempty"`
}

type registryGetParams struct {
	Identity *registry.Identity `json:"identity"`
	Label    *string            `json:"label"`
}

type registryGetResult struct {
	Found   bool    `json:"found"`
	Content *string `json:"content,omitempty"`
}

type registryDelegateParams struct {
	Target *registry.AccountID `json:"target,omitempty"`
}

type registryGetDelegateParams struct {
	Account registry.AccountID `json:"account"`
}

type registryGetDelegateResult struct {
	Found    bool   `json:"found"`
	Delegate string `json:"delegate,omitempty"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func decodeSingleParam(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single parameter object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

// writeRegistryError maps registry failures onto JSON-RPC codes.
func writeRegistryError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case registry.IsAuthorizationError(err):
		writeError(w, http.StatusForbidden, id, codeForbidden, "not authorized", err.Error())
	case errors.Is(err, registry.ErrInvalidIdentity):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid identity", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "registry unavailable", err.Error())
	}
}

func (s *Server) handleRegistrySet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, authErr := s.auth.Caller(r)
	if authErr != nil {
		s.rejectUnauthenticated(w, r, req, authErr)
		return
	}
	var params registrySetParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if params.Label == nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "label required", nil)
		return
	}
	if err := s.node.RegistrySet(caller, params.Identity, *params.Label, params.Content, params.Proof); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleRegistryGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryGetParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if params.Identity == nil || params.Label == nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "identity and label required", nil)
		return
	}
	content, ok, err := s.node.RegistryGet(*params.Identity, *params.Label)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	result := registryGetResult{Found: ok}
	if ok {
		result.Content = &content
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleRegistryDelegate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, authErr := s.auth.Caller(r)
	if authErr != nil {
		s.rejectUnauthenticated(w, r, req, authErr)
		return
	}
	var params registryDelegateParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := s.node.RegistryDelegate(caller, params.Target); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleRegistryGetDelegate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registryGetDelegateParams
	if rpcErr := decodeSingleParam(req, &params); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := params.Account.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account", err.Error())
		return
	}
	delegate, ok, err := s.node.RegistryDelegateOf(params.Account)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, registryGetDelegateResult{Found: ok, Delegate: string(delegate)})
}

func (s *Server) handleRegistryCanonical(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var identity registry.Identity
	if rpcErr := decodeSingleParam(req, &identity); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	if err := identity.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid identity", err.Error())
		return
	}
	writeResult(w, req.ID, identity.Canonical())
}
