// Команда order собирает корзину из позиций меню и отправляет заказ.
//
//	order -name Ana -item 1:2:extra -item 6 -notes "to go"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/customer"
	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/transport/grpcapi"
)

type itemSpec struct {
	ID        int
	Quantity  int
	Sweetness domain.Sweetness
}

type itemFlags []itemSpec

func (f *itemFlags) String() string {
	parts := make([]string, 0, len(*f))
	for _, s := range *f {
		parts = append(parts, fmt.Sprintf("%d:%d", s.ID, s.Quantity))
	}
	return strings.Join(parts, ",")
}

func (f *itemFlags) Set(v string) error {
	spec, err := parseItemSpec(v)
	if err != nil {
		return err
	}
	*f = append(*f, spec)
	return nil
}

// parseItemSpec разбирает id[:qty[:sweetness]].
func parseItemSpec(v string) (itemSpec, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) > 3 {
		return itemSpec{}, fmt.Errorf("item %q: want id[:qty[:sweetness]]", v)
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil || id <= 0 {
		return itemSpec{}, fmt.Errorf("item %q: bad id", v)
	}
	spec := itemSpec{ID: id, Quantity: 1}

	if len(parts) > 1 && parts[1] != "" {
		q, err := strconv.Atoi(parts[1])
		if err != nil || q <= 0 {
			return itemSpec{}, fmt.Errorf("item %q: bad quantity", v)
		}
		spec.Quantity = q
	}
	if len(parts) > 2 {
		spec.Sweetness = domain.Sweetness(strings.ToLower(parts[2]))
		if !spec.Sweetness.Valid() {
			return itemSpec{}, fmt.Errorf("item %q: %w", v, domain.ErrSweetnessInvalid)
		}
	}
	return spec, nil
}

// fillCart кладёт позиции в корзину по меню сервера.
func fillCart(cart *customer.Cart, menu []domain.MenuItem, specs []itemSpec) error {
	byID := make(map[int]domain.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	for _, s := range specs {
		item, ok := byID[s.ID]
		if !ok {
			return fmt.Errorf("menu item %d not found", s.ID)
		}
		cart.Add(item)
		if err := cart.SetQuantity(s.ID, s.Quantity); err != nil {
			return err
		}
		if s.Sweetness != "" {
			if err := cart.SetSweetness(s.ID, s.Sweetness); err != nil {
				return fmt.Errorf("menu item %d: %w", s.ID, err)
			}
		}
	}
	return nil
}

func main() {
	var (
		addr    string
		name    string
		notes   string
		items   itemFlags
		timeout time.Duration
	)
	flag.StringVar(&addr, "addr", "localhost:50051", "gRPC address of the cafe server")
	flag.StringVar(&name, "name", "", "customer name")
	flag.StringVar(&notes, "notes", "", "order notes")
	flag.Var(&items, "item", "menu item as id[:qty[:sweetness]], repeatable")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	conn, err := grpcapi.Dial(addr)
	if err != nil {
		log.WithError(err).Fatal("не удалось подключиться к серверу")
	}
	defer conn.Close()
	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	menu, err := client.Menu(ctx)
	if err != nil {
		log.WithError(err).Fatal("не удалось получить меню")
	}
	if len(items) == 0 {
		printMenu(menu)
		return
	}

	ctrl := customer.NewController(client, log.WithField("component", "customer"))
	if err := fillCart(ctrl.Cart(), menu, items); err != nil {
		log.WithError(err).Fatal("не удалось собрать корзину")
	}

	order, err := ctrl.Submit(ctx, name, notes)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Fprintln(os.Stderr, "  -", p)
			}
		}
		log.WithError(err).Fatal("заказ не принят")
	}
	fmt.Println(order.ID)
}

func printMenu(menu []domain.MenuItem) {
	for _, m := range menu {
		fmt.Printf("%2d  %-10s %s\n", m.ID, m.Category, m.Name)
	}
}
