package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/ranktoken/internal/client"
	"github.com/lox/ranktoken/internal/game"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"http://localhost:8080" help:"Server URL to connect to"`
	Player   string `short:"p" long:"player" help:"Player name"`
	PeerID   string `long:"peer-id" help:"Resume an existing session with this peer ID"`
	LogLevel string `short:"l" long:"log-level" default:"warn" help:"Log level"`
	LogFile  string `long:"log-file" default:"ranktoken-client.log" help:"Log file path"`
}

func main() {
	ctx := kong.Parse(&CLI)

	name := CLI.Player
	if name == "" {
		fmt.Print("Enter your player name: ")
		var input string
		_, _ = fmt.Scanln(&input)
		name = strings.TrimSpace(input)
		if name == "" {
			fmt.Println("Player name is required")
			ctx.Exit(1)
		}
	}

	// Log to a file so the terminal stays usable as the game view
	logFile, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}

	var opts []client.Option
	if CLI.PeerID != "" {
		opts = append(opts, client.WithPeerID(CLI.PeerID))
	}
	c := client.NewClient(CLI.Server, name, logger, opts...)

	c.OnUpdate(func(s game.State) {
		render(s, c.PlayerID())
	})
	c.OnError(func(code, message string) {
		fmt.Printf("\n! %s: %s\n> ", code, message)
	})

	if err := c.Connect(); err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = c.Close() }()

	fmt.Printf("Connected as %s (peer %s)\n", name, c.PlayerID())
	fmt.Println("Commands: ready, unready, name <new>, turn, pick <n>, go, next, state, quit")

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if !dispatch(c, strings.Fields(scanner.Text())) {
			return
		}
		fmt.Print("> ")
	}
}

// dispatch runs one command line; it returns false on quit.
func dispatch(c *client.Client, fields []string) bool {
	if len(fields) == 0 {
		return true
	}

	var err error
	switch fields[0] {
	case "ready":
		err = c.Ready(true)
	case "unready":
		err = c.Ready(false)
	case "name":
		if len(fields) < 2 {
			fmt.Println("Usage: name <new>")
			return true
		}
		err = c.SetName(strings.Join(fields[1:], " "))
	case "turn":
		err = c.TurnReady()
	case "pick":
		if len(fields) < 2 {
			fmt.Println("Usage: pick <n>")
			return true
		}
		n, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			fmt.Println("Usage: pick <n>")
			return true
		}
		err = c.SelectToken(n)
	case "go":
		err = c.ProceedTurn()
	case "next":
		err = c.NextGameReady()
	case "state":
		render(c.State(), c.PlayerID())
	case "quit", "exit":
		return false
	default:
		fmt.Printf("Unknown command %q\n", fields[0])
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	return true
}

// render prints the current snapshot from this player's perspective.
func render(s game.State, playerID string) {
	fmt.Printf("\n=== %s ===\n", client.PhaseText(s))

	for _, p := range s.Players {
		marker := " "
		if p.ID == playerID {
			marker = "*"
		}
		ready := ""
		if s.ReadyStatus[p.ID] {
			ready = " [ready]"
		}
		fmt.Printf("%s %s%s\n", marker, p.Name, ready)
	}

	if me, ok := s.PlayerByID(playerID); ok && len(me.HoleCards) > 0 {
		cards := make([]string, len(me.HoleCards))
		for i, card := range me.HoleCards {
			cards[i] = card.String()
		}
		fmt.Printf("Your cards: %s\n", strings.Join(cards, " "))
	}

	if len(s.CommunityCards) > 0 {
		cards := make([]string, len(s.CommunityCards))
		for i, card := range s.CommunityCards {
			cards[i] = card.String()
		}
		fmt.Printf("Community:  %s\n", strings.Join(cards, " "))
	}

	if len(s.Tokens) > 0 && s.Phase == game.PhaseTokenTrading {
		fmt.Print("Tokens:    ")
		for _, tok := range s.Tokens {
			owner := "free"
			if tok.OwnerID != "" {
				owner = tok.OwnerID[:4]
				if tok.OwnerID == playerID {
					owner = "you"
				}
			}
			fmt.Printf(" %d(%s)", tok.Number, owner)
		}
		fmt.Println()
	}

	if s.Result != nil {
		for _, p := range s.Result.Players {
			status := "wrong"
			if p.Correct {
				status = "right"
			}
			fmt.Printf("%s: token %d, %s (%s)\n", p.PlayerID[:4], p.Token, p.Hand.Name, status)
		}
	}

	fmt.Print("> ")
}
