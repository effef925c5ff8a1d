// Command roomctl prints the persisted rooms of a badger room store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"github.com/Tyrowin/roomrelay/internal/roomstore"
)

func main() {
	dbPath := flag.String("db", "data/rooms", "Path to the badger room store")
	search := flag.String("search", "", "Case-insensitive filter on name, slug and note")
	page := flag.Int("page", 1, "Page to print")
	limit := flag.Int("limit", 50, "Rooms per page")
	flag.Parse()

	store, err := roomstore.OpenBadgerReadOnly(*dbPath, logs.GetLoggerFromString("WARN"))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer store.Close()

	q := roomstore.ListQuery{Page: *page, Limit: *limit, Search: *search}
	result, err := store.List(context.Background(), q)
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Slug", "Name", "Created By", "Created At", "Note"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, room := range result.Rooms {
		// First 8 characters are enough to tell ids apart on screen
		displayID := room.ID
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}
		note := ""
		if room.Note != nil {
			note = *room.Note
		}
		table.Append([]string{
			displayID,
			room.Slug,
			room.Name,
			room.CreatedBy,
			room.CreatedAt.Format("2006-01-02 15:04:05"),
			note,
		})
	}
	table.Render()

	summary := fmt.Sprintf("%d of %d rooms (page %d)", len(result.Rooms), result.Total, q.Page)
	if result.Total == 0 {
		fmt.Println(color.New(color.FgYellow).Render(summary))
		return
	}
	fmt.Println(color.New(color.FgGreen, color.OpBold).Render(summary))
}
