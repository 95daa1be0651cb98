// Command loadtest drives a TalkLine server with many concurrent clients
// that register, log in, and message each other, then reports throughput
// and delivery counts.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua."

var loremWords = strings.Fields(loremIpsum)

// Stats tracks run-wide counters.
type Stats struct {
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	sendErrors       atomic.Int64
	connectionErrors atomic.Int64
}

type loadClient struct {
	id       int
	username string
	conn     net.Conn
	reader   *bufio.Reader
	stats    *Stats
}

func dialClient(addr string, id int, stats *Stats) (*loadClient, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &loadClient{
		id:       id,
		username: fmt.Sprintf("loaduser%d", id),
		conn:     conn,
		reader:   bufio.NewReader(conn),
		stats:    stats,
	}, nil
}

func (c *loadClient) sendLine(line string) error {
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *loadClient) readLine(timeout time.Duration) (string, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := c.reader.ReadString('\n')
	c.conn.SetReadDeadline(time.Time{})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\n"), nil
}

// setup registers and logs the client in, consuming both Success replies.
func (c *loadClient) setup() error {
	if err := c.sendLine(fmt.Sprintf("register %s pw%d", c.username, c.id)); err != nil {
		return err
	}
	if line, err := c.readLine(5 * time.Second); err != nil {
		return err
	} else if line != "Success" {
		return fmt.Errorf("register: unexpected reply %q", line)
	}

	if err := c.sendLine(fmt.Sprintf("login %s pw%d", c.username, c.id)); err != nil {
		return err
	}
	// The login verdict may be preceded by Online broadcasts and direct
	// messages from peers already running.
	for {
		line, err := c.readLine(5 * time.Second)
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, "Online ") {
			continue
		}
		if strings.HasPrefix(line, "message ") {
			c.stats.messagesReceived.Add(1)
			continue
		}
		if line != "Success" {
			return fmt.Errorf("login: unexpected reply %q", line)
		}
		return nil
	}
}

// drain counts everything the server pushes at us until the connection closes.
func (c *loadClient) drain() {
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return
		}
		if strings.HasPrefix(line, "message ") {
			c.stats.messagesReceived.Add(1)
		}
	}
}

// chatter messages random peers at the configured rate until done closes.
func (c *loadClient) chatter(clients int, rate time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			peer := rand.Intn(clients)
			text := randomSentence()
			if err := c.sendLine(fmt.Sprintf("message loaduser%d %s", peer, text)); err != nil {
				c.stats.sendErrors.Add(1)
				return
			}
			c.stats.messagesSent.Add(1)
		}
	}
}

func randomSentence() string {
	n := 3 + rand.Intn(8)
	words := make([]string, n)
	for i := range words {
		words[i] = loremWords[rand.Intn(len(loremWords))]
	}
	return strings.Join(words, " ")
}

func main() {
	addr := flag.String("addr", "localhost:6477", "server address")
	clients := flag.Int("clients", 50, "number of concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rate := flag.Duration("rate", 500*time.Millisecond, "delay between messages per client")
	flag.Parse()

	stats := &Stats{}
	done := make(chan struct{})

	log.Printf("Connecting %d clients to %s...", *clients, *addr)

	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		client, err := dialClient(*addr, i, stats)
		if err != nil {
			stats.connectionErrors.Add(1)
			log.Printf("client %d: connect failed: %v", i, err)
			continue
		}
		if err := client.setup(); err != nil {
			stats.connectionErrors.Add(1)
			log.Printf("client %d: setup failed: %v", i, err)
			client.conn.Close()
			continue
		}

		wg.Add(1)
		go func(c *loadClient) {
			defer wg.Done()
			defer c.conn.Close()
			go c.drain()
			c.chatter(*clients, *rate, done)
		}(client)
	}

	log.Printf("Running for %s...", *duration)
	start := time.Now()
	time.Sleep(*duration)
	close(done)
	wg.Wait()
	elapsed := time.Since(start)

	sent := stats.messagesSent.Load()
	received := stats.messagesReceived.Load()
	fmt.Println()
	fmt.Printf("Duration:          %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Messages sent:     %d (%.1f/s)\n", sent, float64(sent)/elapsed.Seconds())
	fmt.Printf("Messages received: %d\n", received)
	fmt.Printf("Send errors:       %d\n", stats.sendErrors.Load())
	fmt.Printf("Connection errors: %d\n", stats.connectionErrors.Load())
}
