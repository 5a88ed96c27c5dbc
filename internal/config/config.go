// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package config carrega e valida as configurações do oneway-sender e do
// oneway-receiver. O arquivo de transferência é texto orientado a linha
// (estilo INI): linhas em branco ignoradas, comentários com ';' ou '#',
// headers [section] aceitos e ignorados, e pares key = value.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mephesto1337/oneway/internal/protocol"
)

// Defaults de protocolo e de runtime.
const (
	DefaultMTU             = 1024
	DefaultRemissionCount  = 3
	DefaultRecvTimeout     = 3 * time.Second
	DefaultChannelSize     = 64
	DefaultSessionTTL      = 5 * time.Minute
	DefaultDiskWarnPercent = 90.0
)

// minMTU é o menor mtu em que um FileChunk com 1 byte de conteúdo ainda
// cabe num datagrama (envelope 6B + prefixo fixo 19B).
const minMTU = 26

// Config representa a configuração completa de um transfer, compartilhada
// read-only entre dispatcher e handlers.
type Config struct {
	// MTU é o tamanho máximo de um datagrama, header de envelope incluso.
	MTU int

	// RemissionCount é quantas cópias de cada envelope o sender emite.
	RemissionCount int

	// RecvTimeout é o deadline de cada recv do dispatcher.
	RecvTimeout time.Duration

	// Root é o diretório base: origem no sender, destino no receiver.
	Root string

	// Address é o alvo do sender ou o bind do receiver (host:port).
	Address string

	// ChannelSize é a profundidade da fila dispatcher → handler.
	ChannelSize int

	// RateLimit limita a emissão do sender em bytes/segundo (0 = sem limite).
	RateLimit int64

	// SessionTTL é o tempo máximo de ociosidade de uma sessão no receiver.
	SessionTTL time.Duration

	// DiskWarnPercent é o limiar de uso do filesystem de Root a partir do
	// qual o receiver loga warning.
	DiskWarnPercent float64

	// Logging.
	LogLevel  string
	LogFormat string
	LogFile   string

	// Warnings acumula avisos não fatais do parse (keys desconhecidas),
	// para o caller logar depois de construir o logger.
	Warnings []string
}

// InvalidConfigError é fatal: uma linha sintaticamente malformada.
type InvalidConfigError struct {
	Linenum int
	Line    string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid line (%d) found in config: %s", e.Linenum, e.Line)
}

func defaults() *Config {
	return &Config{
		MTU:             DefaultMTU,
		RemissionCount:  DefaultRemissionCount,
		RecvTimeout:     DefaultRecvTimeout,
		ChannelSize:     DefaultChannelSize,
		SessionTTL:      DefaultSessionTTL,
		DiskWarnPercent: DefaultDiskWarnPercent,
	}
}

// Load lê e valida um arquivo de configuração de transfer.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := parse(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func parse(f *os.File) (*Config, error) {
	cfg := defaults()
	scanner := bufio.NewScanner(f)
	linenum := 0

	for scanner.Scan() {
		linenum++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		kind, key, value := classifyLine(line)
		switch kind {
		case lineComment, lineSection:
			// Sections são aceitas e ignoradas.
		case lineKey:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown key %q", key))
		case lineKeyValue:
			if err := cfg.apply(key, value, linenum); err != nil {
				return nil, err
			}
		default:
			return nil, &InvalidConfigError{Linenum: linenum, Line: line}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

type lineKind int

const (
	lineInvalid lineKind = iota
	lineComment
	lineSection
	lineKey
	lineKeyValue
)

// classifyLine reproduz a gramática do formato: comentário, section,
// key solta ou key = value. Keys aceitam apenas [A-Za-z0-9_-].
func classifyLine(line string) (lineKind, string, string) {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
		return lineComment, "", ""
	}
	if idx := strings.IndexByte(line, '='); idx >= 0 {
		key := strings.TrimRight(line[:idx], " \t")
		if !isValidKey(key) {
			return lineInvalid, "", ""
		}
		value := strings.TrimSpace(line[idx+1:])
		if value == "" {
			return lineInvalid, "", ""
		}
		return lineKeyValue, key, value
	}
	if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
		section := line[1 : len(line)-1]
		if !isValidKey(section) {
			return lineInvalid, "", ""
		}
		return lineSection, section, ""
	}
	key := strings.TrimSpace(line)
	if !isValidKey(key) {
		return lineInvalid, "", ""
	}
	return lineKey, key, ""
}

func isValidKey(key string) bool {
	if key == "" {
		return false
	}
	for _, c := range key {
		valid := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_' || c == '-'
		if !valid {
			return false
		}
	}
	return true
}

// apply interpreta uma key reconhecida. Valores que não parseiam são
// fatais; keys desconhecidas viram warning.
func (c *Config) apply(key, value string, linenum int) error {
	parseInt := func(field string) (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("line %d: parsing %s %q: %w", linenum, field, value, errOrRange(err))
		}
		return n, nil
	}

	switch {
	case strings.EqualFold(key, "mtu"):
		n, err := parseInt("mtu")
		if err != nil {
			return err
		}
		c.MTU = n
	case strings.EqualFold(key, "remission_count"):
		n, err := parseInt("remission_count")
		if err != nil {
			return err
		}
		c.RemissionCount = n
	case strings.EqualFold(key, "recv_timeout"):
		n, err := parseInt("recv_timeout")
		if err != nil {
			return err
		}
		c.RecvTimeout = time.Duration(n) * time.Second
	case strings.EqualFold(key, "channel_size"):
		n, err := parseInt("channel_size")
		if err != nil {
			return err
		}
		c.ChannelSize = n
	case strings.EqualFold(key, "session_ttl"):
		n, err := parseInt("session_ttl")
		if err != nil {
			return err
		}
		c.SessionTTL = time.Duration(n) * time.Second
	case strings.EqualFold(key, "rate_limit"):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("line %d: parsing rate_limit %q: %w", linenum, value, errOrRange(err))
		}
		c.RateLimit = n
	case strings.EqualFold(key, "disk_warn_percent"):
		pct, err := strconv.ParseFloat(value, 64)
		if err != nil || pct < 0 || pct > 100 {
			return fmt.Errorf("line %d: parsing disk_warn_percent %q: %w", linenum, value, errOrRange(err))
		}
		c.DiskWarnPercent = pct
	case strings.EqualFold(key, "root"):
		c.Root = value
	case strings.EqualFold(key, "address"):
		c.Address = value
	case strings.EqualFold(key, "log_level"):
		c.LogLevel = value
	case strings.EqualFold(key, "log_format"):
		c.LogFormat = value
	case strings.EqualFold(key, "log_file"):
		c.LogFile = value
	case strings.EqualFold(key, "key"):
		// Campo reservado para uma futura revisão com criptografia.
		c.Warnings = append(c.Warnings, "key is reserved and ignored in this revision")
	default:
		c.Warnings = append(c.Warnings, fmt.Sprintf("unknown key %q", key))
	}
	return nil
}

func errOrRange(err error) error {
	if err != nil {
		return err
	}
	return strconv.ErrRange
}

func (c *Config) validate() error {
	if c.MTU < minMTU {
		return fmt.Errorf("mtu %d is too small (minimum %d)", c.MTU, minMTU)
	}
	if protocol.MaxPayloadSize(c.MTU) > 0xffff {
		return fmt.Errorf("mtu %d exceeds the 16-bit envelope size field", c.MTU)
	}
	if c.RemissionCount < 1 {
		return fmt.Errorf("remission_count must be at least 1")
	}
	if c.ChannelSize < 1 {
		return fmt.Errorf("channel_size must be at least 1")
	}
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	return nil
}
