package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"shiftmarket/internal/cache"
	"shiftmarket/internal/config"
	"shiftmarket/internal/domain"
	"shiftmarket/internal/realtime"
	"shiftmarket/pkg/logger"
)

// fetchJSON pulls one resource from the marketplace API and decodes it into a
// generic value for the local cache.
func fetchJSON(client *http.Client, url string) (interface{}, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, body)
	}

	var out interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return out, nil
}

func main() {
	log := logger.New()
	log.Info("Starting Sync Agent")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	creds, err := realtime.NewFileCredentialStore(cfg.Agent.CredentialFile, log)
	if err != nil {
		log.Error("Failed to open credential store", "error", err, "file", cfg.Agent.CredentialFile)
		os.Exit(1)
	}
	defer func() {
		if err := creds.Close(); err != nil {
			log.Error("Failed to close credential store", "error", err)
		}
	}()

	store := cache.NewStore(log)
	defer store.Close()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	baseURL := cfg.Agent.APIBaseURL

	store.RegisterGroup(realtime.GroupNotifications, func(ctx context.Context) (interface{}, error) {
		return fetchJSON(httpClient, baseURL+"/api/v1/users/me/notifications")
	})
	store.RegisterGroup(realtime.GroupShifts, func(ctx context.Context) (interface{}, error) {
		return fetchJSON(httpClient, baseURL+"/api/v1/shifts")
	})
	store.RegisterGroup(realtime.GroupApplications, func(ctx context.Context) (interface{}, error) {
		return fetchJSON(httpClient, baseURL+"/api/v1/workers/me/applications")
	})
	store.RegisterGroup(realtime.GroupWallet, func(ctx context.Context) (interface{}, error) {
		return fetchJSON(httpClient, baseURL+"/api/v1/workers/me/payments")
	})

	client, err := realtime.NewClient(realtime.Options{
		URL:               cfg.Realtime.URL,
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		HeartbeatTimeout:  cfg.Realtime.HeartbeatTimeout,
		ReconnectBase:     cfg.Realtime.ReconnectBase,
		ReconnectMax:      cfg.Realtime.ReconnectMax,
		MaxAttempts:       cfg.Realtime.MaxAttempts,
		PollInterval:      cfg.Realtime.PollInterval,
	}, creds, store, log)
	if err != nil {
		log.Error("Failed to create realtime client", "error", err)
		os.Exit(1)
	}

	unsubscribe := client.Subscribe(domain.MessageNotification, func(data json.RawMessage) {
		log.Info("Notification received", "payload", string(data))
	})
	defer unsubscribe()

	client.Start()
	defer client.Stop()

	// Status endpoint
	router := mux.NewRouter()
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"client": client.Status(),
			"groups": store.Snapshot(),
		}); err != nil {
			log.Error("Failed to write status response", "error", err)
		}
	}).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","timestamp":%q}`, time.Now().Format(time.RFC3339))
	}).Methods(http.MethodGet)

	statusAddr := fmt.Sprintf(":%d", cfg.Agent.StatusPort)
	server := &http.Server{Addr: statusAddr, Handler: router}

	go func() {
		log.Info("Starting status server", "address", statusAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Status server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down sync agent...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Status server forced to shutdown", "error", err)
	}

	log.Info("Sync agent stopped")
}
