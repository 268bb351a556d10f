package ticktrack

import (
	"github.com/ticktrack/ticktrack/model"
	"github.com/ticktrack/ticktrack/trias"
)

// Derives the realtime irregularities reported for a single stop
// event. Previous, current and onward calls are each judged on
// their own flags.
func ComputeMetrics(result trias.StopEventResult) model.RealtimeMetrics {
	m := model.RealtimeMetrics{
		Cancelled: result.Service.Cancelled,
	}

	count := func(call *trias.Call) {
		if call.NotServicedStop {
			m.NumCancelledStops++
		}
		if call.UnplannedStop {
			m.NumAddedStops++
		}
	}

	for i := range result.PreviousCalls {
		count(&result.PreviousCalls[i])
	}
	if result.ThisCall != nil {
		count(result.ThisCall)
	}
	for i := range result.OnwardCalls {
		count(&result.OnwardCalls[i])
	}

	return m
}
