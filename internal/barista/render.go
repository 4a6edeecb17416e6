package barista

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Render печатает доску: сначала ожидающие заказы, затем выданные.
func (b *Board) Render(w io.Writer, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	pending := b.Pending()
	completed := b.Completed()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "[%s]\n", b.Status())
	renderSection(bw, "Pending", pending, loc)
	renderSection(bw, "Completed", completed, loc)
	return bw.Flush()
}

func renderSection(w io.Writer, title string, orders []domain.Order, loc *time.Location) {
	fmt.Fprintf(w, "\n%s (%d)\n", title, len(orders))
	if len(orders) == 0 {
		fmt.Fprintln(w, "  no orders")
		return
	}
	for _, o := range orders {
		fmt.Fprintf(w, "  %s  %s  #%s\n", o.CreatedAt.In(loc).Format("15:04:05"), o.CustomerName, shortID(o.ID))
		for _, item := range o.Items {
			line := fmt.Sprintf("    %d× %s", item.Quantity, item.Name)
			if item.Sweetness != "" {
				line += fmt.Sprintf(" (%s)", item.Sweetness)
			}
			fmt.Fprintln(w, line)
		}
		if o.Notes != "" {
			fmt.Fprintf(w, "    notes: %s\n", o.Notes)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
