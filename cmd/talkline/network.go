package main

import (
	"bufio"
	"net"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type serverLineMsg string

type errMsg error

// Network owns the TCP connection to the server and exposes it to the UI as
// Bubble Tea commands.
type Network struct {
	conn   net.Conn
	reader *bufio.Reader
}

func NewNetwork() *Network {
	return &Network{}
}

// Connect dials the server, defaulting the port when none is given.
func (n *Network) Connect(host string) error {
	if n.conn != nil {
		n.conn.Close()
	}

	if !strings.Contains(host, ":") {
		host = host + ":6477"
	}

	conn, err := net.DialTimeout("tcp", host, 5*time.Second)
	if err != nil {
		return err
	}
	n.conn = conn
	n.reader = bufio.NewReader(conn)
	return nil
}

func (n *Network) Disconnect() {
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
		n.reader = nil
	}
}

func (n *Network) Connected() bool {
	return n.conn != nil
}

// SendLine returns a command that writes one protocol line to the server.
func (n *Network) SendLine(line string) tea.Cmd {
	return func() tea.Msg {
		if n.conn == nil {
			return errMsg(net.ErrClosed)
		}
		if _, err := n.conn.Write([]byte(line + "\n")); err != nil {
			n.Disconnect()
			return errMsg(err)
		}
		return nil
	}
}

// WaitForLine blocks until the server sends the next line.
func (n *Network) WaitForLine() tea.Msg {
	if n.reader == nil {
		return nil
	}
	line, err := n.reader.ReadString('\n')
	if err != nil {
		n.Disconnect()
		return errMsg(err)
	}
	return serverLineMsg(strings.TrimRight(line, "\n"))
}
