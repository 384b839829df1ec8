package app

import (
	"context"
	"strings"

	"payadmin/internal/transfers"
)

const (
	requestScopeDetail           = "detail"
	requestScopeCollectionPrefix = "collection:"
)

type requestScope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// replaceRequestScope cancels any request still running under name and
// returns a fresh context for the next one.
func (m *Model) replaceRequestScope(name string) context.Context {
	name = strings.TrimSpace(name)
	if name == "" {
		return m.baseContext()
	}
	m.cancelRequestScope(name)
	if m.requestScopes == nil {
		m.requestScopes = map[string]requestScope{}
	}
	ctx, cancel := context.WithCancel(m.baseContext())
	m.requestScopes[name] = requestScope{ctx: ctx, cancel: cancel}
	return ctx
}

func (m *Model) hasRequestScope(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || m.requestScopes == nil {
		return false
	}
	_, ok := m.requestScopes[name]
	return ok
}

func (m *Model) cancelRequestScope(name string) {
	name = strings.TrimSpace(name)
	if name == "" || m.requestScopes == nil {
		return
	}
	scope, ok := m.requestScopes[name]
	if !ok {
		return
	}
	if scope.cancel != nil {
		scope.cancel()
	}
	delete(m.requestScopes, name)
}

func (m *Model) cancelRequestScopesWithPrefix(prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || len(m.requestScopes) == 0 {
		return
	}
	for key, scope := range m.requestScopes {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if scope.cancel != nil {
			scope.cancel()
		}
		delete(m.requestScopes, key)
	}
}

func (m *Model) cancelAllRequestScopes() {
	for key, scope := range m.requestScopes {
		if scope.cancel != nil {
			scope.cancel()
		}
		delete(m.requestScopes, key)
	}
}

func collectionRequestScopeName(kind transfers.Kind) string {
	return requestScopeCollectionPrefix + kind.String()
}

func (m *Model) baseContext() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}
