package otel

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func participantAttr(id int) attribute.KeyValue {
	return attribute.Int("gonogo.participant", id)
}

func sessionIDAttr(id string) attribute.KeyValue {
	return attribute.String("gonogo.session_id", id)
}

func conditionAttr(c string) attribute.KeyValue {
	return attribute.String("gonogo.condition", c)
}

func blockAttr(label string) attribute.KeyValue {
	return attribute.String("gonogo.block", label)
}

func goCategoryAttr(c string) attribute.KeyValue {
	return attribute.String("gonogo.go_category", c)
}

func imageAttr(image string) attribute.KeyValue {
	return attribute.String("gonogo.image", image)
}

func stimulusAttr(kind string) attribute.KeyValue {
	return attribute.String("gonogo.stimulus", kind)
}

func responseAttr(resp string) attribute.KeyValue {
	return attribute.String("gonogo.response", resp)
}

func correctAttr(ok bool) attribute.KeyValue {
	return attribute.Bool("gonogo.correct", ok)
}

// Durations are exported in milliseconds, the unit used in RT analysis.
func isiAttr(d time.Duration) attribute.KeyValue {
	return attribute.Float64("gonogo.isi_ms", float64(d)/float64(time.Millisecond))
}

func reactionTimeAttr(d time.Duration) attribute.KeyValue {
	return attribute.Float64("gonogo.rt_ms", float64(d)/float64(time.Millisecond))
}

func eventDataAttr(data string) attribute.KeyValue {
	return attribute.String("event.data", data)
}
