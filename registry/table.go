package registry

import (
	"bufio"
	"fmt"
	"io"
)

// TableHeader is the first line of the introspection table.
const TableHeader = "ifindex ifname"

// Row is one managed interface as shown in the introspection table.
type Row struct {
	// Index is the bound interface index, or Unbound.
	Index int
	Name  string
}

// Snapshot returns the managed interfaces in insertion order. The rows are
// a consistent view taken with the update lock held.
func (r *Registry) Snapshot() ([]Row, error) {
	r.updateLock.Lock()
	defer r.updateLock.Unlock()

	if r.closed {
		return nil, nil
	}
	entries, err := r.store.list()
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{Index: e.ifindex(), Name: e.name})
	}
	return rows, nil
}

// WriteTable renders rows in the introspection table format.
func WriteTable(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, TableHeader)
	for _, row := range rows {
		fmt.Fprintf(bw, "%-7d %s\n", row.Index, row.Name)
	}
	return bw.Flush()
}
