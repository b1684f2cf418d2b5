package parser

// csvState is the tokenizer's position within a record.
type csvState int

const (
	stateField csvState = iota
	stateQuotedField
	stateRecordBoundary
)

// ParseCSV tokenizes CSV text with a character state machine over
// {field, quoted-field, record-boundary}. It handles doubled-quote escaping
// inside quoted fields, commas and newlines inside quotes, and both \n and
// \r\n line endings. Rows that are entirely empty are dropped.
func ParseCSV(content string) [][]string {
	var (
		rows    [][]string
		row     []string
		field   []rune
		state   = stateRecordBoundary
		runes   = []rune(content)
		endRow  func()
		endCell func()
	)

	endCell = func() {
		row = append(row, string(field))
		field = field[:0]
	}
	endRow = func() {
		endCell()
		if !rowIsEmpty(row) {
			rows = append(rows, row)
		}
		row = nil
	}

	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case stateRecordBoundary:
			// First character of a new record
			switch ch {
			case '\r', '\n':
				// Consecutive line endings produce empty rows, dropped
			case '"':
				state = stateQuotedField
			case ',':
				endCell()
				state = stateField
			default:
				field = append(field, ch)
				state = stateField
			}

		case stateField:
			switch ch {
			case ',':
				endCell()
			case '\n':
				endRow()
				state = stateRecordBoundary
			case '\r':
				if i+1 < len(runes) && runes[i+1] == '\n' {
					i++
				}
				endRow()
				state = stateRecordBoundary
			case '"':
				if len(field) == 0 {
					state = stateQuotedField
				} else {
					// Bare quote mid-field kept literal
					field = append(field, ch)
				}
			default:
				field = append(field, ch)
			}

		case stateQuotedField:
			if ch == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					// Doubled quote is an escaped literal quote
					field = append(field, '"')
					i++
				} else {
					state = stateField
				}
			} else {
				field = append(field, ch)
			}
		}
	}

	// Flush a final record without a trailing newline
	if state != stateRecordBoundary || len(field) > 0 || len(row) > 0 {
		endRow()
	}

	return rows
}

// rowIsEmpty reports whether every cell in the row is empty
func rowIsEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
