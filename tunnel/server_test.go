package tunnel

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/ssh"

	"ltmsg/util"
)

// gateway is an in-process SSH server that grants remote forwards,
// echoes direct-tcpip channels and answers keepalives.
type gateway struct {
	addr       string
	port       int
	hostKey    ssh.Signer
	keepalives atomic.Int64
	cancels    chan channelForwardMsg
	// forwarded receives the gateway side of each forwarded-tcpip
	// channel, so a test can play the remote peer.
	forwarded chan ssh.Channel
	// assignPort is reported when a client asks for port 0.
	assignPort uint32
}

func startGateway(t *testing.T) *gateway {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	g := &gateway{
		addr:       ln.Addr().String(),
		port:       ln.Addr().(*net.TCPAddr).Port,
		hostKey:    signer,
		cancels:    make(chan channelForwardMsg, 4),
		forwarded:  make(chan ssh.Channel, 4),
		assignPort: 40000,
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go g.serve(c, cfg)
		}
	}()
	return g
}

func (g *gateway) serve(nc net.Conn, cfg *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	defer conn.Close()

	go func() {
		for req := range reqs {
			switch req.Type {
			case "tcpip-forward":
				var m channelForwardMsg
				ssh.Unmarshal(req.Payload, &m) //nolint:errcheck
				if m.Port == 0 {
					m.Port = g.assignPort
					req.Reply(true, ssh.Marshal(&channelForwardReply{Port: m.Port})) //nolint:errcheck
				} else {
					req.Reply(true, nil) //nolint:errcheck
				}
				go g.forward(conn, m)
			case "cancel-tcpip-forward":
				var m channelForwardMsg
				ssh.Unmarshal(req.Payload, &m) //nolint:errcheck
				g.cancels <- m
				req.Reply(true, nil) //nolint:errcheck
			case "keepalive@openssh.com":
				g.keepalives.Add(1)
				req.Reply(true, nil) //nolint:errcheck
			default:
				req.Reply(false, nil) //nolint:errcheck
			}
		}
	}()

	for newCh := range chans {
		if newCh.ChannelType() != "direct-tcpip" {
			newCh.Reject(ssh.UnknownChannelType, "unsupported") //nolint:errcheck
			continue
		}
		ch, creqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go ssh.DiscardRequests(creqs)
		go func() {
			io.Copy(ch, ch) //nolint:errcheck
			ch.Close()
		}()
	}
}

// forward plays one peer connecting to the forwarded port.
func (g *gateway) forward(conn *ssh.ServerConn, m channelForwardMsg) {
	payload := forwardedTCPPayload{
		Addr: "0.0.0.0", Port: m.Port,
		OriginAddr: "198.51.100.7", OriginPort: 51234,
	}
	ch, reqs, err := conn.OpenChannel("forwarded-tcpip", ssh.Marshal(&payload))
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)
	g.forwarded <- ch
}

func (g *gateway) config(t *testing.T) *SSHConfig {
	return &SSHConfig{User: "tester", Host: "127.0.0.1", Port: g.port, KeyPath: writeKey(t, nil)}
}

func quietLogger() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

// writeKey writes a fresh ed25519 key, encrypted when passphrase is set.
func writeKey(t *testing.T, passphrase []byte) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	var block *pem.Block
	if passphrase != nil {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "test", passphrase)
	} else {
		block, err = ssh.MarshalPrivateKey(priv, "test")
	}
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id_test")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
