package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/paveg/noshow/internal/errors"
)

// Split is a train/test partition with the source row indices of each side.
type Split struct {
	Train      *Dataset
	Test       *Dataset
	TrainIndex []int
	TestIndex  []int
}

// Fold is one cross-validation fold, as row indices into the fitted dataset.
type Fold struct {
	Train []int
	Test  []int
}

// NewRand returns the deterministic generator used for every seeded step.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// StratifiedSplit holds out ceil(n*testSize) rows so that each class keeps
// its share of the data on both sides. Per-class test counts are allocated by
// largest remainder; rows are drawn by a seeded shuffle within each class.
func StratifiedSplit(d *Dataset, testSize float64, seed int64) (*Split, error) {
	const op = "StratifiedSplit"

	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValueError(op, fmt.Sprintf("test size must be between 0 and 1, got %g", testSize))
	}

	n := d.Len()
	counts := d.ClassCounts()
	classes := sortedClasses(counts)
	if len(classes) < 2 {
		return nil, errors.NewValueError(op, fmt.Sprintf("need at least 2 classes to stratify, got %d", len(classes)))
	}
	for _, c := range classes {
		if counts[c] < 2 {
			return nil, errors.NewValueError(op,
				fmt.Sprintf("class %d has %d member; every class needs at least 2", c, counts[c]))
		}
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, errors.NewValueError(op,
			fmt.Sprintf("train size %d and test size %d must each hold all %d classes", nTrain, nTest, len(classes)))
	}

	allocation := largestRemainder(classes, counts, n, nTest)

	byClass := make(map[int][]int, len(classes))
	for i, label := range d.Y {
		byClass[label] = append(byClass[label], i)
	}

	rng := NewRand(seed)
	trainIndex := make([]int, 0, nTrain)
	testIndex := make([]int, 0, nTest)
	for _, c := range classes {
		members := byClass[c]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		testIndex = append(testIndex, members[:allocation[c]]...)
		trainIndex = append(trainIndex, members[allocation[c]:]...)
	}
	rng.Shuffle(len(trainIndex), func(i, j int) { trainIndex[i], trainIndex[j] = trainIndex[j], trainIndex[i] })
	rng.Shuffle(len(testIndex), func(i, j int) { testIndex[i], testIndex[j] = testIndex[j], testIndex[i] })

	return &Split{
		Train:      d.Subset(trainIndex),
		Test:       d.Subset(testIndex),
		TrainIndex: trainIndex,
		TestIndex:  testIndex,
	}, nil
}

// largestRemainder splits total across classes in proportion to their counts.
// Leftover units go to the largest fractional parts, ties to the smaller label.
func largestRemainder(classes []int, counts map[int]int, n, total int) map[int]int {
	type share struct {
		class     int
		remainder float64
	}
	allocation := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := float64(total) * float64(counts[c]) / float64(n)
		whole := int(math.Floor(exact))
		allocation[c] = whole
		assigned += whole
		shares = append(shares, share{class: c, remainder: exact - float64(whole)})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].remainder > shares[j].remainder
	})
	for i := 0; assigned < total; i++ {
		allocation[shares[i%len(shares)].class]++
		assigned++
	}
	return allocation
}

// StratifiedKFold partitions row indices into k folds that preserve class
// proportions. Without shuffling, each class's rows are cut into contiguous
// chunks in order of appearance and fold i takes chunk i of every class.
func StratifiedKFold(y []int, k int) ([]Fold, error) {
	const op = "StratifiedKFold"

	if k < 2 {
		return nil, errors.NewValueError(op, fmt.Sprintf("need at least 2 folds, got %d", k))
	}

	// Encode classes by order of first appearance.
	encoded := make([]int, len(y))
	codes := make(map[int]int)
	var sizes []int
	for i, label := range y {
		code, ok := codes[label]
		if !ok {
			code = len(sizes)
			codes[label] = code
			sizes = append(sizes, 0)
		}
		encoded[i] = code
		sizes[code]++
	}
	if len(sizes) < 2 {
		return nil, errors.NewValueError(op, fmt.Sprintf("need at least 2 classes to stratify, got %d", len(sizes)))
	}
	for label, code := range codes {
		if sizes[code] < k {
			return nil, errors.NewValueError(op,
				fmt.Sprintf("class %d has %d members, fewer than %d folds", label, sizes[code], k))
		}
	}

	// Deal the sorted labels round-robin to balance fold sizes, then give
	// each class's rows to folds in contiguous runs of those sizes.
	ordered := append([]int(nil), encoded...)
	sort.Ints(ordered)
	allocation := make([][]int, k)
	for f := range allocation {
		allocation[f] = make([]int, len(sizes))
	}
	for i, code := range ordered {
		allocation[i%k][code]++
	}

	assignment := make([]int, len(y))
	next := make([]int, len(sizes))
	filled := make([]int, len(sizes))
	for i, code := range encoded {
		for filled[code] >= allocation[next[code]][code] {
			filled[code] = 0
			next[code]++
		}
		assignment[i] = next[code]
		filled[code]++
	}

	folds := make([]Fold, k)
	for i, f := range assignment {
		for j := range folds {
			if j == f {
				folds[j].Test = append(folds[j].Test, i)
			} else {
				folds[j].Train = append(folds[j].Train, i)
			}
		}
	}
	return folds, nil
}
