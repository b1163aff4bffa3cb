package engine

import "github.com/jdharms/termynal/internal/config"

// TypeSet is a set of line types
type TypeSet map[config.LineType]bool

// PassiveTypes are the line types that may be rendered together in a batch
var PassiveTypes = TypeSet{
	config.LineOutput:  true,
	config.LineComment: true,
	config.LineWarning: true,
	config.LineSuccess: true,
	config.LineError:   true,
}

// CollectBatch returns the contiguous run of passive, unprocessed lines
// starting at start.
//
// Already processed lines are skipped only while the batch is still empty;
// once the batch has begun, a processed line ends it. The first line whose
// type is not passive ends the batch without being included. A line with an
// explicit lineDelay is included and then ends the batch.
func CollectBatch(queue []QueuedLine, start int, isProcessed func(QueuedLine) bool, passive TypeSet) []QueuedLine {
	var batch []QueuedLine

	for i := start; i < len(queue); i++ {
		line := queue[i]

		if isProcessed(line) {
			if len(batch) == 0 {
				continue
			}
			break
		}

		if !passive[line.Type] {
			break
		}

		batch = append(batch, line)
		if line.LineDelay != nil {
			break
		}
	}

	return batch
}
