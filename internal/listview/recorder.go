package listview

// Recorder observes fetch and action outcomes. The prometheus metrics implement it.
type Recorder interface {
	ObserveFetch(resource Resource, err error)
	ObserveAction(resource Resource, kind ActionKind, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(Resource, error)             {}
func (nopRecorder) ObserveAction(Resource, ActionKind, error) {}
