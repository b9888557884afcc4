// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package messageport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/playerbridge/internal/log"
	"github.com/ManuGH/playerbridge/internal/metrics"
)

const (
	memoryQueueSize = 64
	dropLogEvery    = 100
)

var dropCount atomic.Uint64

// MemoryNetwork connects MemoryTransports of one process. It is used by
// tests and by single-process setups where the peer runs in-process.
type MemoryNetwork struct {
	mu    sync.RWMutex
	ports map[string]*memPort
}

// NewMemoryNetwork returns an empty network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{ports: make(map[string]*memPort)}
}

// Transport returns a transport registering ports for appID.
func (n *MemoryNetwork) Transport(appID string) *MemoryTransport {
	return &MemoryTransport{
		net:    n,
		appID:  appID,
		byName: make(map[string]*memPort),
		byID:   make(map[int]*memPort),
	}
}

func memKey(appID, port string) string { return appID + "/" + port }

func (n *MemoryNetwork) lookup(appID, port string) *memPort {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ports[memKey(appID, port)]
}

type memPort struct {
	id    int
	appID string
	name  string
	ch    chan Message
	quit  chan struct{}

	mu sync.Mutex // serializes callback invocations
	cb Callback
}

// MemoryTransport is an in-process Transport. Each registered port has a
// bounded queue drained by its own goroutine; a send blocks while the queue
// is full until the send context ends.
type MemoryTransport struct {
	net   *MemoryNetwork
	appID string

	mu     sync.Mutex
	byName map[string]*memPort
	byID   map[int]*memPort
	nextID int
	closed bool
	wg     sync.WaitGroup
}

var _ Transport = (*MemoryTransport)(nil)

func (t *MemoryTransport) RegisterLocalPort(name string, cb Callback) (int, error) {
	if !validName(name) || cb == nil {
		return 0, portError("register", ErrorInvalidParameter, nil)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, portError("register", ErrorResourceUnavailable, nil)
	}
	if p, ok := t.byName[name]; ok {
		p.mu.Lock()
		p.cb = cb
		p.mu.Unlock()
		return p.id, nil
	}

	p := &memPort{
		id:    t.nextID,
		appID: t.appID,
		name:  name,
		ch:    make(chan Message, memoryQueueSize),
		quit:  make(chan struct{}),
		cb:    cb,
	}
	t.nextID++

	t.net.mu.Lock()
	t.net.ports[memKey(t.appID, name)] = p
	t.net.mu.Unlock()

	t.byName[name] = p
	t.byID[p.id] = p
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		p.run()
	}()
	return p.id, nil
}

func (p *memPort) run() {
	for {
		select {
		case msg := <-p.ch:
			p.mu.Lock()
			p.cb(p.id, msg)
			p.mu.Unlock()
		case <-p.quit:
			return
		}
	}
}

func (t *MemoryTransport) UnregisterLocalPort(id int) error {
	t.mu.Lock()
	p, ok := t.byID[id]
	if ok {
		delete(t.byID, id)
		delete(t.byName, p.name)
	}
	t.mu.Unlock()
	if !ok {
		return portError("unregister", ErrorInvalidParameter, nil)
	}

	t.net.mu.Lock()
	if t.net.ports[memKey(p.appID, p.name)] == p {
		delete(t.net.ports, memKey(p.appID, p.name))
	}
	t.net.mu.Unlock()
	close(p.quit)
	return nil
}

func (t *MemoryTransport) SendMessage(ctx context.Context, remoteAppID, remotePort string, b *Bundle, localPortID int) error {
	if ctx == nil {
		return portError("send", ErrorInvalidParameter, errors.New("send context is nil"))
	}
	if !validName(remoteAppID) || !validName(remotePort) || b.Len() == 0 {
		return portError("send", ErrorInvalidParameter, nil)
	}
	sender, err := t.localPortName(localPortID)
	if err != nil {
		return err
	}

	p := t.net.lookup(remoteAppID, remotePort)
	if p == nil {
		return portError("send", ErrorPortNotFound, nil)
	}

	msg := Message{
		RemoteAppID: t.appID,
		RemotePort:  sender,
		Trusted:     true,
		Bundle:      b.Clone(),
	}
	select {
	case p.ch <- msg:
		return nil
	case <-p.quit:
		return portError("send", ErrorPortNotFound, nil)
	case <-ctx.Done():
		reason := sendDropReason(ctx.Err())
		metrics.IncBusDropReason(remotePort, reason)
		count := dropCount.Add(1)
		if count%dropLogEvery == 0 {
			log.L().Warn().
				Str(log.FieldRemotePort, remotePort).
				Str("reason", reason).
				Uint64("dropped", count).
				Msg("memory transport dropped messages due to context cancellation")
		}
		return portError("send", ErrorResourceUnavailable, ctx.Err())
	}
}

func (t *MemoryTransport) CheckRemotePort(_ context.Context, remoteAppID, remotePort string) (bool, error) {
	if !validName(remoteAppID) || !validName(remotePort) {
		return false, portError("check", ErrorInvalidParameter, nil)
	}
	return t.net.lookup(remoteAppID, remotePort) != nil, nil
}

// Close unregisters every port and waits for their delivery goroutines.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	ids := make([]int, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		_ = t.UnregisterLocalPort(id)
	}
	t.wg.Wait()
	return nil
}

func (t *MemoryTransport) localPortName(id int) (string, error) {
	if id < 0 {
		return "", nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[id]
	if !ok {
		return "", portError("send", ErrorInvalidParameter, errors.New("unknown local port"))
	}
	return p.name, nil
}

func sendDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}
