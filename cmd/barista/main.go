// Команда barista показывает доску заказов и держит её в актуальном
// состоянии по потоку WatchOrders.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/barista"
	"github.com/vladislavdragonenkov/cafe/internal/transport/grpcapi"
)

const clearScreen = "\033[H\033[2J"

func main() {
	var (
		addr     string
		resync   time.Duration
		complete string
		plain    bool
	)
	flag.StringVar(&addr, "addr", "localhost:50051", "gRPC address of the cafe server")
	flag.DurationVar(&resync, "resync", 0, "periodic full refresh interval (0 = only on reconnect)")
	flag.StringVar(&complete, "complete", "", "mark the order with this id as completed and exit")
	flag.BoolVar(&plain, "plain", false, "do not clear the terminal between redraws")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	conn, err := grpcapi.Dial(addr)
	if err != nil {
		log.WithError(err).Fatal("не удалось подключиться к серверу")
	}
	defer conn.Close()
	client := grpcapi.NewClient(conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if complete != "" {
		order, err := client.Complete(ctx, complete)
		if err != nil {
			log.WithError(err).Fatal("не удалось завершить заказ")
		}
		fmt.Printf("order %s is %s\n", order.ID, order.Status)
		return
	}

	board := barista.NewBoard()
	redraw := newRedrawer(os.Stdout, board, !plain)
	watcher := barista.NewWatcher(client, board,
		barista.WithWatcherLogger(log.WithField("component", "barista")),
		barista.WithResyncInterval(resync),
		barista.WithOnChange(redraw),
	)

	redraw()
	watcher.Run(ctx)
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("watcher stopped")
	}
}

func newRedrawer(w io.Writer, board *barista.Board, clear bool) func() {
	return func() {
		if clear {
			_, _ = io.WriteString(w, clearScreen)
		}
		if err := board.Render(w, time.Local); err != nil {
			log.WithError(err).Warn("render failed")
		}
	}
}
