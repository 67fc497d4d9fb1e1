package roster

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

const (
	fileDateLayout   = "2006-01-02"
	headerDateLayout = "02/01/2006"
)

// ListFilename is the download name of the passenger list for day.
func ListFilename(day time.Time) string {
	return "lista-passageiros-" + day.Format(fileDateLayout) + ".txt"
}

// CallFilename is the download name of the call sheet for day.
func CallFilename(day time.Time) string {
	return "chamada-" + day.Format(fileDateLayout) + ".txt"
}

// WriteList writes the numbered passenger list.
func (s *Store) WriteList(w io.Writer, day time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Lista de Passageiros - %s\n\n", day.Format(headerDateLayout))
	for i, p := range s.Passengers() {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "%d. %s - %s", i+1, p.Name, p.Affiliation)
	}
	return bw.Flush()
}

// WriteCall writes the call sheet: a summary of the tally followed by one
// line per passenger with its status.
func (s *Store) WriteCall(w io.Writer, day time.Time) error {
	entries := s.snapshot()
	t := tallyOf(entries)

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Chamada - %s\n\n", day.Format(headerDateLayout))
	fmt.Fprintf(bw, "Resumo:\nPresentes: %d\nAusentes: %d\nPendentes: %d\n\n", t.Present, t.Absent, t.Unset)
	bw.WriteString("Detalhes:\n")
	for i, e := range entries {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "%s - %s - %s", e.Name, e.Affiliation, statusLabel(e.Mark))
	}
	return bw.Flush()
}

func statusLabel(m Mark) string {
	switch m {
	case Present:
		return "Presente"
	case Absent:
		return "Ausente"
	default:
		return "Pendente"
	}
}
