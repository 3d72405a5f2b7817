package coordinator

import "github.com/rodneyosodo/fedcollab/round"

// ExperimentStats is the round-major history reshaped per metric: for each
// scalar metric a rounds-by-clients matrix, for the collaborator weight
// vectors a rounds-by-clients-by-nodes cube. RoundStep is carried for the
// plotting collaborator's x axis.
type ExperimentStats struct {
	TestAccBefore [][]float64   `json:"test_acc_before_training"`
	TrainLoss     [][]float64   `json:"train_loss"`
	TrainAcc      [][]float64   `json:"train_acc"`
	TestAccAfter  [][]float64   `json:"test_acc_after_training"`
	CollabWeights [][][]float64 `json:"collab_weights"`
	RoundStep     int           `json:"round_step"`
}

// reshapeStats turns the per-round, per-client stats history into
// per-metric ordered sequences.
func reshapeStats(history [][]round.Stats) ExperimentStats {
	out := ExperimentStats{
		TestAccBefore: make([][]float64, len(history)),
		TrainLoss:     make([][]float64, len(history)),
		TrainAcc:      make([][]float64, len(history)),
		TestAccAfter:  make([][]float64, len(history)),
		CollabWeights: make([][][]float64, len(history)),
		RoundStep:     1,
	}

	for i, roundStats := range history {
		out.TestAccBefore[i] = make([]float64, len(roundStats))
		out.TrainLoss[i] = make([]float64, len(roundStats))
		out.TrainAcc[i] = make([]float64, len(roundStats))
		out.TestAccAfter[i] = make([]float64, len(roundStats))
		out.CollabWeights[i] = make([][]float64, len(roundStats))

		for j, stats := range roundStats {
			out.TestAccBefore[i][j] = stats.TestAccBefore
			out.TrainLoss[i][j] = stats.TrainLoss
			out.TrainAcc[i][j] = stats.TrainAcc
			out.TestAccAfter[i][j] = stats.TestAccAfter
			out.CollabWeights[i][j] = stats.CollabWeights
		}
	}

	return out
}
