// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package transport define a capacidade mínima de datagrama que o protocolo
// usa: enviar bytes (sender) e receber bytes com endereço de origem
// (receiver). O socket UDP real e o duplex em memória dos testes implementam
// as mesmas interfaces, então dispatcher e emitter nunca tocam em net.Conn
// diretamente.
package transport

import (
	"errors"
	"net"
	"time"
)

// ErrTimeout indica que nenhum datagrama chegou dentro do deadline de leitura.
// Benigno: o dispatcher volta ao topo do loop.
var ErrTimeout = errors.New("transport: receive timed out")

// ErrClosed indica operação sobre um transporte já fechado.
var ErrClosed = errors.New("transport: closed")

// PacketSender envia um datagrama inteiro por chamada.
type PacketSender interface {
	Send(p []byte) error
	Close() error
}

// PacketReceiver recebe um datagrama inteiro por chamada, junto com o
// endereço do peer que o originou.
//
// RecvFrom copia o datagrama para p e retorna quantos bytes foram escritos.
// Um datagrama maior que p é truncado (o caller dimensiona p pelo mtu).
// Retorna ErrTimeout quando o deadline expira sem tráfego.
type PacketReceiver interface {
	RecvFrom(p []byte) (int, net.Addr, error)
	SetRecvTimeout(d time.Duration)
	Close() error
}
