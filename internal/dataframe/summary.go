package dataframe

import (
	"fmt"
	"sort"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/paveg/noshow/internal/errors"
)

// rowSeparator joins cell texts when hashing a row; it cannot occur in CSV text.
const rowSeparator = "\x1f"

// NullCount pairs a column with its number of missing values.
type NullCount struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
}

// NullCounts returns the null count of every column in column order.
func (df *DataFrame) NullCounts() []NullCount {
	counts := make([]NullCount, 0, len(df.order))
	for _, name := range df.order {
		counts = append(counts, NullCount{Column: name, Nulls: df.columns[name].NullCount()})
	}
	return counts
}

// DuplicateRows counts rows that repeat an earlier row across all columns.
// Rows are bucketed by an xxhash digest and compared exactly within a bucket.
func (df *DataFrame) DuplicateRows() int {
	n := df.Len()
	buckets := make(map[uint64][]int, n)
	duplicates := 0

	for i := 0; i < n; i++ {
		key := df.rowKey(i)
		hash := xxhash.Sum64String(key)
		seen := false
		for _, j := range buckets[hash] {
			if df.rowKey(j) == key {
				seen = true
				break
			}
		}
		if seen {
			duplicates++
			continue
		}
		buckets[hash] = append(buckets[hash], i)
	}
	return duplicates
}

// NUnique returns the number of distinct non-null values in a column.
func (df *DataFrame) NUnique(column string) (int, error) {
	s, ok := df.columns[column]
	if !ok {
		return 0, columnNotFound("NUnique", column)
	}
	distinct := make(map[uint64]struct{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			continue
		}
		distinct[xxhash.Sum64String(s.GetAsString(i))] = struct{}{}
	}
	return len(distinct), nil
}

// ValueCounts returns the frequency of each non-null value of a column,
// most frequent first. Proportions are relative to the non-null count.
func (df *DataFrame) ValueCounts(column string) ([]ValueCount, error) {
	s, ok := df.columns[column]
	if !ok {
		return nil, columnNotFound("ValueCounts", column)
	}

	counts := make(map[string]int)
	total := 0
	for i := 0; i < s.Len(); i++ {
		if s.IsNull(i) {
			continue
		}
		counts[s.GetAsString(i)]++
		total++
	}

	result := make([]ValueCount, 0, len(counts))
	for value, count := range counts {
		result = append(result, ValueCount{
			Value:      value,
			Count:      count,
			Proportion: float64(count) / float64(total),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Value < result[j].Value
	})
	return result, nil
}

// Row renders one row as column -> text, nulls as empty strings.
func (df *DataFrame) Row(index int) (map[string]string, error) {
	if index < 0 || index >= df.Len() {
		return nil, errors.NewValidationError("Row", "",
			fmt.Sprintf("index %d out of bounds [0, %d)", index, df.Len()))
	}
	row := make(map[string]string, len(df.order))
	for _, name := range df.order {
		row[name] = df.columns[name].GetAsString(index)
	}
	return row, nil
}

func (df *DataFrame) rowKey(index int) string {
	var b strings.Builder
	for i, name := range df.order {
		if i > 0 {
			b.WriteString(rowSeparator)
		}
		s := df.columns[name]
		if s.IsNull(index) {
			b.WriteString("\x00")
			continue
		}
		b.WriteString(s.GetAsString(index))
	}
	return b.String()
}
