// Package credentials issues and caches short-lived database credentials.
package credentials

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wfunc/trexbooth/logger"
)

// Credential is a username/token pair accepted by the database as user/password.
type Credential struct {
	Username string
	Token    string
}

// Source issues a fresh credential on every call.
type Source interface {
	Issue(ctx context.Context) (Credential, error)
}

// RefreshObserver is notified after every successful issuance.
type RefreshObserver interface {
	IncCredentialRefreshes()
}

// Provider caches the last credential issued by its Source. Staleness is not
// tracked locally; callers force a Refresh when the database rejects it.
type Provider struct {
	source   Source
	observer RefreshObserver

	mu     sync.RWMutex
	cached *Credential

	group singleflight.Group
}

func NewProvider(source Source, observer RefreshObserver) *Provider {
	return &Provider{source: source, observer: observer}
}

// Get returns the cached credential, issuing one if the cache is empty.
func (p *Provider) Get(ctx context.Context) (Credential, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()

	if cached != nil {
		return *cached, nil
	}
	return p.Refresh(ctx)
}

// Refresh issues a new credential and replaces the cached one. Concurrent
// callers share a single issuance.
func (p *Provider) Refresh(ctx context.Context) (Credential, error) {
	// 共享的签发不能随第一个调用者的 ctx 一起取消
	issueCtx := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do("refresh", func() (interface{}, error) {
		cred, err := p.source.Issue(issueCtx)
		if err != nil {
			return nil, fmt.Errorf("issue database credential: %w", err)
		}

		p.mu.Lock()
		p.cached = &cred
		p.mu.Unlock()

		if p.observer != nil {
			p.observer.IncCredentialRefreshes()
		}
		logger.Log.Infow("database credential refreshed", "username", cred.Username)
		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

// Invalidate drops the cached credential so the next Get issues a new one.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Static always returns the same credential. Used for local databases.
type Static struct {
	Credential Credential
}

func (s Static) Issue(context.Context) (Credential, error) {
	return s.Credential, nil
}
