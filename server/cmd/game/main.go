package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"

	"github.com/darkgotchi/mpnet/server/configs"
	internalActor "github.com/darkgotchi/mpnet/server/internal/actor"
	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/game"
	"github.com/darkgotchi/mpnet/server/internal/network"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

func main() {
	// --- Configuration ---
	configs.CreateExampleConfigFile("config.json")
	cfg, err := configs.LoadConfig("config.json")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.SetLogLevel(cfg.Server.LogLevel)
	utils.LogInfo("Starting multiplayer session server...")
	utils.LogInfof("Configuration loaded. TCP port: %d, log level: %s", cfg.Server.TCPPort, cfg.Server.LogLevel)

	// --- Actor system ---
	actorSystem := actor.NewActorSystem()
	utils.LogInfo("Actor system initialized.")

	// Stats recording is optional; an empty Redis address disables it.
	var stats *game.StatsRecorder
	if cfg.Redis.Address != "" {
		stats = game.NewStatsRecorder(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	} else {
		utils.LogInfo("Redis address not configured, stats recording disabled.")
	}

	roomManagerPID, err := actorSystem.Root.SpawnNamed(internalActor.PropsForRoomManager(stats), "room-manager")
	if err != nil {
		utils.LogFatalf("Failed to spawn RoomManagerActor: %v", err)
	}
	utils.LogInfof("RoomManagerActor spawned with PID: %s", roomManagerPID.String())

	lobbyPID, err := actorSystem.Root.SpawnNamed(internalActor.PropsForLobby(roomManagerPID), "lobby")
	if err != nil {
		utils.LogFatalf("Failed to spawn LobbyActor: %v", err)
	}
	utils.LogInfof("LobbyActor spawned with PID: %s", lobbyPID.String())

	// Periodic matchmaking tick; each pass pairs queued players in join order.
	interval := time.Duration(cfg.Matchmaking.IntervalMS) * time.Millisecond
	timer := scheduler.NewTimerScheduler(actorSystem.Root)
	cancelTick := timer.SendRepeatedly(interval, interval, lobbyPID, &messages.MatchTick{})

	// --- Network ---
	tcpServer := network.NewTCPServer(cfg.Server.Host, cfg.Server.TCPPort, actorSystem, lobbyPID, roomManagerPID)
	if err := tcpServer.Start(); err != nil {
		log.Fatalf("Failed to start TCP server: %v", err)
	}

	log.Println("Server successfully initialized and running.")
	log.Println("Press Ctrl+C to shut down.")

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	cancelTick()
	tcpServer.Stop()

	log.Printf("Stopping LobbyActor %s...", lobbyPID.String())
	if err := actorSystem.Root.StopFuture(lobbyPID).Wait(); err != nil {
		log.Printf("Error stopping LobbyActor: %v", err)
	}

	log.Printf("Stopping RoomManagerActor %s...", roomManagerPID.String())
	if err := actorSystem.Root.StopFuture(roomManagerPID).Wait(); err != nil {
		log.Printf("Error stopping RoomManagerActor: %v", err)
	}

	actorSystem.Shutdown()

	if stats != nil {
		if err := stats.Close(); err != nil {
			log.Printf("Error closing stats recorder: %v", err)
		}
	}

	log.Println("Server shut down gracefully.")
}
