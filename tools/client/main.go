package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/darkgotchi/mpnet/client"
)

func main() {
	var host = flag.String("host", "localhost", "Server host")
	var port = flag.Int("port", 9999, "Server port")
	var username = flag.String("name", "", "Username (server assigns one if empty)")
	flag.Parse()

	// A fixed creature is enough for poking at the server by hand.
	creature := json.RawMessage(`{"name":"Skeleton","hp":20,"abilities":["Bone Throw","Rattle"]}`)

	transport := client.NewTransport()
	transport.RegisterHandler(client.MsgLobbyJoined, func(msg gjson.Result) {
		fmt.Printf("\n<< joined lobby as %s (%s), %d waiting\n", msg.Get("username"), msg.Get("player_id"), msg.Get("players_waiting").Int())
	})
	transport.RegisterHandler(client.MsgLobbyStatus, func(msg gjson.Result) {
		fmt.Printf("\n<< lobby status: %d waiting\n", msg.Get("players_waiting").Int())
	})
	transport.RegisterHandler(client.MsgBattleStart, func(msg gjson.Result) {
		fmt.Printf("\n<< battle %s started, you are %s, first turn %s, opponent creature %s\n",
			msg.Get("battle_id"), msg.Get("your_role"), msg.Get("current_turn"), msg.Get("opponent_creature"))
	})
	transport.RegisterHandler(client.MsgBattleAction, func(msg gjson.Result) {
		fmt.Printf("\n<< opponent used ability %d, now it is %s's turn\n", msg.Get("ability_index").Int(), msg.Get("current_turn"))
	})
	transport.RegisterHandler(client.MsgBattleEnd, func(msg gjson.Result) {
		fmt.Printf("\n<< battle over: winner %q, reason %s\n", msg.Get("winner").String(), msg.Get("reason"))
	})
	transport.RegisterHandler(client.MsgAdventureCreated, func(msg gjson.Result) {
		fmt.Printf("\n<< created party %s\n", msg.Get("adventure_id"))
	})
	transport.RegisterHandler(client.MsgAdventureJoined, func(msg gjson.Result) {
		fmt.Printf("\n<< joined party %s\n", msg.Get("adventure_id"))
	})
	transport.RegisterHandler(client.MsgAdventureJoinFailed, func(msg gjson.Result) {
		fmt.Printf("\n<< join failed: %s\n", msg.Get("message"))
	})
	transport.RegisterHandler(client.MsgAdventurePartyUpdate, func(msg gjson.Result) {
		fmt.Printf("\n<< party %s now %s, members %s, host %s\n",
			msg.Get("adventure_id"), msg.Get("state"), msg.Get("usernames"), msg.Get("host"))
	})
	transport.RegisterHandler(client.MsgAdventureStart, func(msg gjson.Result) {
		fmt.Printf("\n<< adventure %s started with %s\n", msg.Get("adventure_id"), msg.Get("usernames"))
	})
	transport.RegisterHandler(client.MsgAdventureUpdate, func(msg gjson.Result) {
		fmt.Printf("\n<< update from %s: %s\n", msg.Get("from_player"), msg.Get("data"))
	})
	transport.RegisterHandler(client.MsgAdventureParties, func(msg gjson.Result) {
		parties := msg.Get("parties").Array()
		if len(parties) == 0 {
			fmt.Println("\n<< no open parties")
			return
		}
		fmt.Println("\n<< open parties:")
		for _, p := range parties {
			fmt.Printf("   %s hosted by %s (%d members)\n", p.Get("id"), p.Get("host_username"), p.Get("member_count").Int())
		}
	})

	if err := transport.Connect(*host, *port); err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	defer transport.Disconnect()

	fmt.Printf("Connected to %s:%d\n", *host, *port)
	fmt.Println("Commands: /lobby, /leave, /action <index>, /win <A|B>, /create, /join <party-id>, /update <json>, /parties")
	fmt.Println("Type 'exit' to quit the client")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" {
			break
		}
		if input == "" {
			continue
		}

		fields := strings.Fields(input)
		arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

		var err error
		switch fields[0] {
		case "/lobby":
			err = transport.JoinLobby(creature, *username)
		case "/leave":
			err = transport.LeaveLobby()
		case "/action":
			idx, convErr := strconv.Atoi(arg)
			if convErr != nil {
				fmt.Println("usage: /action <ability-index>")
				continue
			}
			err = transport.SendBattleAction(idx)
		case "/win":
			err = transport.ReportBattleEnd(arg)
		case "/create":
			err = transport.CreateAdventureParty(creature, *username)
		case "/join":
			if arg == "" {
				fmt.Println("usage: /join <party-id>")
				continue
			}
			err = transport.JoinAdventureParty(arg, creature, *username)
		case "/update":
			if !json.Valid([]byte(arg)) {
				fmt.Println("usage: /update <json>")
				continue
			}
			err = transport.SendAdventureUpdate(json.RawMessage(arg))
		case "/parties":
			err = transport.RequestAvailableParties()
		default:
			fmt.Println("Unknown command:", fields[0])
			continue
		}
		if err != nil {
			fmt.Printf("Failed to send: %v\n", err)
		}
	}

	fmt.Println("Goodbye!")
}
