// Command charonctl is a thin debug client for charond's control socket:
// it sends one command line and prints the response, in the same
// single-purpose style as HydraDNS's cmd/dnsquery.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/jroosing/charon/internal/controlplane"
)

func main() {
	var (
		socketPath = flag.String("socket", controlplane.DefaultSocketPath, "control socket path")
		timeout    = flag.Duration("timeout", 2*time.Second, "dial and response timeout")
	)
	flag.Parse()

	command := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if command == "" {
		fmt.Fprintln(os.Stderr, "usage: charonctl [-socket path] <flush|evict|stats|add NAME TYPE RDATA [TTL]|del NAME TYPE>")
		os.Exit(2)
	}

	resp, err := send(*socketPath, command, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "charonctl: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(resp)
	if strings.HasPrefix(resp, "ERR:") {
		os.Exit(1)
	}
}

func send(socketPath, command string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("write command: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read response: %w", err)
	}
	return line, nil
}
