// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// UDPSender embrulha um socket UDP conectado para escrita. O lado de
// leitura nunca é usado: o canal é unidirecional por contrato.
type UDPSender struct {
	conn *net.UDPConn
}

// DialUDP resolve address (host:port) e conecta um socket de envio.
func DialUDP(address string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", address, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}
	return &UDPSender{conn: conn}, nil
}

// Send transmite um datagrama.
func (s *UDPSender) Send(p []byte) error {
	if _, err := s.conn.Write(p); err != nil {
		return fmt.Errorf("sending datagram: %w", err)
	}
	return nil
}

// Close fecha o socket.
func (s *UDPSender) Close() error {
	return s.conn.Close()
}

// UDPReceiver embrulha um socket UDP ligado para leitura com deadline
// por recv. O lado de escrita nunca é usado.
type UDPReceiver struct {
	conn    *net.UDPConn
	timeout time.Duration
}

// ListenUDP liga um socket de recepção em address (host:port).
func ListenUDP(address string) (*UDPReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", address, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", address, err)
	}
	return &UDPReceiver{conn: conn}, nil
}

// SetRecvTimeout define o deadline aplicado a cada RecvFrom.
func (r *UDPReceiver) SetRecvTimeout(d time.Duration) {
	r.timeout = d
}

// RecvFrom recebe um datagrama, devolvendo quantos bytes couberam em p e o
// endereço de origem. Deadlines expirados viram ErrTimeout.
func (r *UDPReceiver) RecvFrom(p []byte) (int, net.Addr, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, nil, fmt.Errorf("setting read deadline: %w", err)
		}
	}
	n, addr, err := r.conn.ReadFromUDP(p)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return 0, nil, ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, nil, ErrClosed
		}
		return 0, nil, fmt.Errorf("receiving datagram: %w", err)
	}
	return n, addr, nil
}

// LocalAddr retorna o endereço efetivamente ligado (útil com porta 0).
func (r *UDPReceiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Close fecha o socket.
func (r *UDPReceiver) Close() error {
	return r.conn.Close()
}
