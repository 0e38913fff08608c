package harness

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/term"
)

// TestMain re-executes the test binary as a child process when GO_TEST_MODE
// is "helper".
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_MODE") == "helper" {
		runHelperProcess()
		return
	}
	os.Exit(m.Run())
}

func helperCommand(t testing.TB, args ...string) *exec.Cmd {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to resolve test binary: %v", err)
	}
	cmd := exec.Command(exe, append([]string{"--"}, args...)...)
	cmd.Env = append(os.Environ(), "GO_TEST_MODE=helper")
	return cmd
}

func runHelperProcess() {
	args := os.Args[1:]
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Helper process requires a command.")
		os.Exit(1)
	}

	switch args[0] {
	case "echo":
		fmt.Println(strings.Join(args[1:], " "))
	case "prompt":
		// Line-oriented prompt. The pty echoes input.
		fmt.Print("> ")
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input := strings.TrimRight(scanner.Text(), "\r")
			if input == "quit" {
				fmt.Println("bye")
				os.Exit(0)
			}
			fmt.Printf("got %s\n> ", input)
		}
	case "bytes":
		// Raw mode, prints the hex of each read, until q.
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to enter raw mode: %v\r\n", err)
			os.Exit(1)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), state) }()
		fmt.Print("raw ready\r\n")
		buf := make([]byte, 64)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			fmt.Printf("[% x]\r\n", buf[:n])
			if n == 1 && buf[0] == 'q' {
				return
			}
		}
	case "cursor":
		fmt.Print("\x1b[2J\x1b[5;10HX\x1b[5;11H")
		time.Sleep(time.Minute)
	case "sixel":
		fmt.Print("\x1b[3;4H\x1bPq\"1;1;100;50#0~~\x1b\\")
		fmt.Print("\x1b[20;1Hdone")
		time.Sleep(time.Minute)
	case "slow":
		d, err := time.ParseDuration(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid duration: %v\n", err)
			os.Exit(1)
		}
		time.Sleep(d)
		fmt.Println(strings.Join(args[2:], " "))
		time.Sleep(time.Minute)
	case "silent":
		time.Sleep(time.Minute)
	case "flood":
		line := []byte(strings.Repeat("y", 79) + "\n")
		for {
			if _, err := os.Stdout.Write(line); err != nil {
				return
			}
		}
	case "chatty":
		// Writes N bytes, then DONE, then exits.
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid size: %v\n", err)
			os.Exit(1)
		}
		w := bufio.NewWriter(os.Stdout)
		for i := 0; i < n; i++ {
			_ = w.WriteByte('a' + byte(i%26))
		}
		_, _ = w.WriteString("\nDONE\n")
		_ = w.Flush()
	default:
		fmt.Fprintf(os.Stderr, "Unknown helper command: %s\n", args[0])
		os.Exit(1)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_TEST_MODE") == "helper" {
		t.Fatalf("TestHelperProcess should not run in helper mode")
	}
}
