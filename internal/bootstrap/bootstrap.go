package bootstrap

import (
	"fmt"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	boardservice "minicalen/internal/modules/board/service"
	syncinadapter "minicalen/internal/modules/sync/adapter/in"
	syncoutadapter "minicalen/internal/modules/sync/adapter/out"
	syncin "minicalen/internal/modules/sync/port/in"
	syncout "minicalen/internal/modules/sync/port/out"
	syncservice "minicalen/internal/modules/sync/service"
	syncusecase "minicalen/internal/modules/sync/usecase"
	"minicalen/internal/platform/clock"
	"minicalen/internal/platform/config"
	"minicalen/internal/platform/id"
	"minicalen/internal/platform/logging"
	"minicalen/internal/relay"
	uiapp "minicalen/internal/ui/app"
)

// App wires the client side together: the board, the synchronizer, and
// the adapters that reach the relay.
type App struct {
	Board   *boardservice.Store
	Sync    *syncservice.SyncService
	SyncUC  syncin.Usecase
	SyncCLI syncinadapter.CLIHandler
	Channel syncout.Channel

	closeLog func() error
}

// New builds a client wired to the relay at cfg.ServerURL. Logs go to
// a file in the data dir so the terminal stays usable for the TUI.
func New(cfg config.Config) (*App, error) {
	clk := clock.SystemClock{}
	ids := id.UUID{}

	log, logCloser, err := logging.NewFile("minicalen", cfg.LogPath())
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	board := boardservice.NewStore(clk)
	channel, err := syncoutadapter.NewWSChannel(cfg.ServerURL, uuid.NewString(), log)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("new relay channel: %w", err)
	}

	syncSvc := syncservice.NewSyncService(
		board,
		syncoutadapter.NewHTTPSnapshotStore(cfg.ServerURL, nil),
		channel,
		syncoutadapter.NewFileResumeStore(cfg.DataDir, clk),
		ids,
		log,
		cfg.Debounce,
	)
	syncUC := syncusecase.NewInteractor(syncSvc)

	return &App{
		Board:    board,
		Sync:     syncSvc,
		SyncUC:   syncUC,
		SyncCLI:  syncinadapter.NewCLIHandler(syncUC),
		Channel:  channel,
		closeLog: logCloser.Close,
	}, nil
}

func (a *App) Close() error {
	err := a.Sync.Close()
	if cerr := a.Channel.Close(); err == nil {
		err = cerr
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
	return err
}

// Relay wires the server side: sqlite store, room hub, HTTP surface,
// and the retention sweeper.
type Relay struct {
	Store     *relay.SQLiteSessionStore
	Handler   http.Handler
	Retention *relay.Retention
}

func NewRelay(cfg config.Config) (*Relay, error) {
	clk := clock.SystemClock{}
	log := logging.New("relay")

	store, err := relay.NewSQLiteSessionStore(cfg.DBPath(), clk)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	hub := relay.NewHub(store, id.UUID{}, log)
	server := relay.NewServer(store, hub, log)
	return &Relay{
		Store:     store,
		Handler:   server.Router(),
		Retention: relay.NewRetention(store, clk, log, cfg.RetentionDays),
	}, nil
}

func (r *Relay) Close() error {
	r.Retention.Stop()
	return r.Store.Close()
}

// RunTUI starts the terminal UI on the wired app.
func RunTUI(app *App) error {
	updates := make(chan struct{}, 1)
	unsubscribe := app.Board.Subscribe(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	model := uiapp.NewModel(app.Board, app.SyncUC, app.Channel, updates, app.Sync.Session().ID)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
