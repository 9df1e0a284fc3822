package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AhmadAC/Fence-Game/board"
	"github.com/AhmadAC/Fence-Game/game"
	"github.com/AhmadAC/Fence-Game/gamesync"
	"github.com/AhmadAC/Fence-Game/network"
)

// Interactive demo client. Creates or joins a match, mirrors the
// server's confirmed state in a local projection, and reads moves from
// stdin as "h x y" / "v x y".
type client struct {
	conn     *websocket.Conn
	playerID string

	mu   sync.Mutex
	proj *gamesync.Projection
	seq  uint32
}

// send frames one packet: 2-byte message id, 2-byte length, payload.
func (c *client) send(msgID uint16, data []byte) error {
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) sendJSON(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.send(msgID, data)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	name := flag.String("name", "player", "display name")
	join := flag.String("join", "", "join code of an existing match (empty to create)")
	width := flag.Int("width", 0, "board width when creating (0 for server default)")
	height := flag.Int("height", 0, "board height when creating (0 for server default)")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.readLoop()
	}()

	if *join != "" {
		err = c.sendJSON(network.MsgTypeJoinMatch, network.JoinMatchRequest{
			JoinCode: strings.ToUpper(*join),
			Name:     *name,
		})
	} else {
		err = c.sendJSON(network.MsgTypeCreateMatch, network.CreateMatchRequest{
			Name:   *name,
			Width:  *width,
			Height: *height,
		})
	}
	if err != nil {
		log.Fatalf("Write error: %v", err)
	}

	log.Println(`Client started. Claim an edge with "h x y" or "v x y".`)

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			c.handleCommand(text)
		}
	}
}

func (c *client) handleCommand(text string) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		if text != "" {
			log.Println(`Commands: "h x y" or "v x y"`)
		}
		return
	}

	var dir board.Orientation
	switch fields[0] {
	case "h":
		dir = board.Horizontal
	case "v":
		dir = board.Vertical
	default:
		log.Println(`Edge direction must be "h" or "v"`)
		return
	}

	x, errX := strconv.Atoi(fields[1])
	y, errY := strconv.Atoi(fields[2])
	if errX != nil || errY != nil {
		log.Println("Coordinates must be integers")
		return
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	mv := game.Move{
		Edge: board.Edge{X: x, Y: y, Dir: dir},
		Seq:  seq,
	}
	if err := c.sendJSON(network.MsgTypeProposeMove, mv); err != nil {
		log.Printf("Write error: %v", err)
	}
}

func (c *client) readLoop() {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		if len(message) < 4 {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}
		msgID := binary.BigEndian.Uint16(message[0:2])
		c.handleMessage(msgID, message[4:])
	}
}

func (c *client) handleMessage(msgID uint16, data []byte) {
	switch msgID {
	case network.MsgTypeHeartbeat:
	case network.MsgTypeCreateMatch:
		var reply network.CreateMatchReply
		if json.Unmarshal(data, &reply) != nil {
			return
		}
		c.playerID = reply.PlayerID
		log.Printf("Created match %s, share join code %s", reply.RoomID, reply.JoinCode)
	case network.MsgTypeJoinMatch:
		var reply network.JoinMatchReply
		if json.Unmarshal(data, &reply) != nil {
			return
		}
		c.playerID = reply.PlayerID
		log.Printf("Joined match %s with %v", reply.RoomID, reply.Players)
	case network.MsgTypePlayerJoined:
		var joined network.PlayerJoined
		if json.Unmarshal(data, &joined) != nil {
			return
		}
		log.Printf("%s joined (%d/%d seats)", joined.Name, joined.Seated, joined.MaxSeats)
	case network.MsgTypeMatchStart:
		c.handleSnapshot(data, "Match started")
	case network.MsgTypeSnapshot:
		c.handleSnapshot(data, "Resynced")
	case network.MsgTypeStateDelta:
		c.handleDelta(data)
	case network.MsgTypeMoveResult:
		var result network.MoveResult
		if json.Unmarshal(data, &result) != nil {
			return
		}
		if !result.Accepted {
			log.Printf("Move %d rejected: %s", result.Seq, result.Reason)
		}
	case network.MsgTypeMatchEnd:
		var end network.MatchEnd
		if json.Unmarshal(data, &end) != nil {
			return
		}
		if end.Draw {
			log.Printf("Match over: draw between %v", end.Winners)
		} else if len(end.Winners) == 1 {
			log.Printf("Match over: %s wins", end.Winners[0])
		}
		for _, s := range end.Standings {
			log.Printf("  %s: %d", s.Name, s.Score)
		}
	case network.MsgTypeError:
		var e network.ErrorReply
		if json.Unmarshal(data, &e) != nil {
			return
		}
		log.Printf("Server error [%s]: %s", e.Code, e.Message)
	default:
		log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
	}
}

func (c *client) handleSnapshot(data []byte, what string) {
	var snap game.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("Bad snapshot: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proj == nil {
		proj, err := gamesync.NewProjection(&snap)
		if err != nil {
			log.Printf("Bad snapshot: %v", err)
			return
		}
		c.proj = proj
	} else if err := c.proj.Restore(&snap); err != nil {
		log.Printf("Restore failed: %v", err)
		return
	}
	log.Printf("%s at version %d", what, snap.Version)
	c.renderLocked()
}

func (c *client) handleDelta(data []byte) {
	var d game.Delta
	if err := json.Unmarshal(data, &d); err != nil {
		log.Printf("Bad delta: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proj == nil {
		return
	}

	err := c.proj.ApplyDelta(&d)
	if errors.Is(err, gamesync.ErrOutOfOrderDelta) || errors.Is(err, gamesync.ErrStateMismatch) {
		log.Printf("Projection fell behind (%v), requesting resync", err)
		c.send(network.MsgTypeResyncQuery, nil)
		return
	}
	if err != nil {
		log.Printf("Delta apply failed: %v", err)
		return
	}
	c.renderLocked()
}

// renderLocked draws the board as ASCII art. Callers hold c.mu.
func (c *client) renderLocked() {
	snap := c.proj.Snapshot()

	edges := make(map[board.Edge]bool, len(snap.Edges))
	for _, ec := range snap.Edges {
		edges[ec.Edge] = true
	}
	cells := make(map[board.Cell]game.PlayerID, len(snap.Cells))
	for _, cc := range snap.Cells {
		cells[cc.Cell] = cc.PlayerID
	}

	initials := make(map[game.PlayerID]byte)
	for _, p := range snap.Players {
		ch := byte('?')
		if p.Name != "" {
			ch = strings.ToUpper(p.Name)[0]
		}
		initials[p.ID] = ch
	}

	var b strings.Builder
	b.WriteByte('\n')
	for y := 0; y <= snap.Height; y++ {
		// Dot row with horizontal edges.
		for x := 0; x < snap.Width; x++ {
			b.WriteByte('+')
			if edges[board.Edge{X: x, Y: y, Dir: board.Horizontal}] {
				b.WriteString("---")
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("+\n")
		if y == snap.Height {
			break
		}
		// Cell row with vertical edges.
		for x := 0; x <= snap.Width; x++ {
			if edges[board.Edge{X: x, Y: y, Dir: board.Vertical}] {
				b.WriteByte('|')
			} else {
				b.WriteByte(' ')
			}
			if x == snap.Width {
				break
			}
			owner := " "
			if id, ok := cells[board.Cell{X: x, Y: y}]; ok {
				owner = string(initials[id])
			}
			fmt.Fprintf(&b, " %s ", owner)
		}
		b.WriteByte('\n')
	}

	for _, p := range snap.Players {
		marker := "  "
		if p.ID == snap.Turn {
			marker = "> "
		}
		status := ""
		if p.Disconnected {
			status = " (disconnected)"
		}
		fmt.Fprintf(&b, "%s%c %s: %d%s\n", marker, initials[p.ID], p.Name, p.Score, status)
	}
	if snap.GameOver {
		b.WriteString("Game over.\n")
	} else if snap.Turn == game.PlayerID(c.playerID) {
		b.WriteString("Your turn.\n")
	}

	fmt.Print(b.String())
}
