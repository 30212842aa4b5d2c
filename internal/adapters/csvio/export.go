package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/soyingpang/sportsday-race-mvp/internal/domain/model"
	"github.com/soyingpang/sportsday-race-mvp/internal/domain/ranking"
)

// utf8BOM lets spreadsheet tools detect the encoding of the Chinese labels.
const utf8BOM = "\ufeff"

// WriteSchedule writes one row per heat in running order. Lane occupants are
// rendered as "class name".
func WriteSchedule(w io.Writer, doc *model.Document) error {
	byID := model.ParticipantIndex(doc.Participants)
	rows := [][]string{{"heatId", "grade", "event", "round", "heatNo", "classA", "classB", "lane1", "lane2", "lane3", "lane4", "locked"}}
	for _, h := range ranking.OrderHeats(doc.Heats) {
		row := []string{h.ID, h.Grade, h.Event, h.Round, strconv.Itoa(h.HeatNo), h.ClassA, h.ClassB}
		for n := 1; n <= model.LaneCount; n++ {
			slot, _ := h.LaneOf(n)
			row = append(row, occupant(slot, byID))
		}
		row = append(row, strconv.FormatBool(h.Locked))
		rows = append(rows, row)
	}
	return writeAll(w, rows)
}

// WriteTotals writes the three-game leaderboard of every grade. Incomplete rows
// carry an empty rank and total.
func WriteTotals(w io.Writer, doc *model.Document) error {
	labels := doc.Games.Labels
	if len(labels) != len(model.DefaultGameLabels) {
		labels = model.DefaultGameLabels
	}
	rows := [][]string{{"grade", "rank", "class", "no", "name", labels[0], labels[1], labels[2], "total", "note"}}
	for _, r := range ranking.AllTotals(doc) {
		rows = append(rows, []string{
			r.Grade, formatRank(r.Rank), r.Class, strconv.Itoa(r.No), r.Name,
			formatTime(r.T1), formatTime(r.T2), formatTime(r.T3), formatTime(r.Total), r.Note,
		})
	}
	return writeAll(w, rows)
}

// WriteScoreSheet writes a printable hand-scoring sheet for one heat.
func WriteScoreSheet(w io.Writer, h model.Heat, participants []model.Participant) error {
	byID := model.ParticipantIndex(participants)
	rows := [][]string{
		{"徑賽手寫計分表"},
		{"年級", h.Grade + " 年級", "項目", h.Event, "輪次", h.Round, "組次", fmt.Sprintf("第 %d 組", h.HeatNo)},
		{"Lane", "班級", "姓名", "成績(秒)", "名次", "備註"},
	}
	for n := 1; n <= model.LaneCount; n++ {
		slot, _ := h.LaneOf(n)
		cls, name := slot.Cls, ""
		if p, ok := byID[slot.ParticipantID()]; ok {
			cls, name = p.Class, p.Name
		}
		rows = append(rows, []string{strconv.Itoa(n), cls, name, "", "", ""})
	}
	return writeAll(w, rows)
}

// ScoreSheetName is the download name of a heat's score sheet.
func ScoreSheetName(h model.Heat) string {
	return fmt.Sprintf("ScoreSheet_%s_%s_H%d.csv", h.Event, h.Round, h.HeatNo)
}

func occupant(slot model.LaneSlot, byID map[string]model.Participant) string {
	if slot.Empty() {
		return ""
	}
	p, ok := byID[slot.ParticipantID()]
	if !ok {
		return slot.ParticipantID()
	}
	return p.Class + " " + p.Name
}

func formatRank(r *int) string {
	if r == nil {
		return ""
	}
	return strconv.Itoa(*r)
}

func formatTime(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func writeAll(w io.Writer, rows [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
