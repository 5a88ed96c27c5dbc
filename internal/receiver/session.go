// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package receiver

import (
	"net"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Session é o estado que o dispatcher mantém por peer: a fila limitada de
// datagramas para o handler e o canal de encerramento. Todo o resto do
// estado da sessão (reassembler, arquivos abertos, keep-alive) pertence
// exclusivamente ao handler.
type Session struct {
	Addr net.Addr

	// Queue carrega datagramas crus do dispatcher para o handler.
	Queue chan []byte

	quit     chan struct{}
	quitOnce sync.Once
}

// Kill sinaliza ao handler que a sessão acabou. Idempotente.
func (s *Session) Kill() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Quit é fechado quando a sessão é encerrada (eviction por TTL ou Done).
func (s *Session) Quit() <-chan struct{} {
	return s.quit
}

// SessionManager indexa sessões por endereço de peer com TTL de
// ociosidade: cada datagrama renova o TTL, e sessões que ficam mudas além
// dele são expiradas, liberando o handler e seus arquivos abertos.
type SessionManager struct {
	store *cache.Cache
}

// NewSessionManager cria o manager com o TTL de ociosidade indicado.
func NewSessionManager(ttl time.Duration) *SessionManager {
	store := cache.New(ttl, ttl)
	store.OnEvicted(func(_ string, v interface{}) {
		v.(*Session).Kill()
	})
	return &SessionManager{store: store}
}

// GetOrCreate devolve a sessão do peer, criando-a se for o primeiro
// datagrama dele. O TTL é renovado a cada acesso. O booleano indica se a
// sessão foi criada agora (o caller deve subir o handler).
func (sm *SessionManager) GetOrCreate(addr net.Addr, queueSize int) (*Session, bool) {
	key := addr.String()
	if v, found := sm.store.Get(key); found {
		sess := v.(*Session)
		sm.store.Set(key, sess, cache.DefaultExpiration)
		return sess, false
	}

	sess := &Session{
		Addr:  addr,
		Queue: make(chan []byte, queueSize),
		quit:  make(chan struct{}),
	}
	sm.store.Set(key, sess, cache.DefaultExpiration)
	return sess, true
}

// Remove expulsa a sessão do peer; a eviction encerra o handler via Kill.
func (sm *SessionManager) Remove(peer string) {
	sm.store.Delete(peer)
}

// Count retorna quantas sessões estão vivas.
func (sm *SessionManager) Count() int {
	return sm.store.ItemCount()
}
