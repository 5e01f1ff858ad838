package model

import "strings"

// IngressFormat distinguishes how a REST-ingested sensor expects its
// payload to be shaped.
type IngressFormat string

const (
	IngressFormatText IngressFormat = "text"
	IngressFormatJSON IngressFormat = "json"
)

// IngressKind discriminates how percepts arrive at a sensor.
type IngressKind string

const (
	IngressInternal        IngressKind = "internal"
	IngressDirectoryWatched IngressKind = "directory_watched"
	IngressRestAPI          IngressKind = "rest_api"
)

// Ingress describes a sensor's ingestion mode. Format is only meaningful
// when Kind is IngressRestAPI.
type Ingress struct {
	Kind   IngressKind
	Format IngressFormat
}

// DefaultIngress is the sensor default: REST-ingested, text format.
func DefaultIngress() Ingress {
	return Ingress{Kind: IngressRestAPI, Format: IngressFormatText}
}

// Sensor is the mutable, name-keyed entity that owns an ordered queue of
// Percepts and a monotonic unread cursor (§3, §4.1).
//
// Invariants: UnreadStart never decreases; UnreadStart <= len(Queue).
type Sensor struct {
	Name              string
	Description       string
	Enabled           bool
	SensitivityScore  int
	Ingress           Ingress
	Queue             []Percept
	UnreadStart       int
	PerceptSingular   string
	PerceptPlural     string
}

// NewSensor builds a Sensor with sensitivity 50 and the default ingress,
// matching the DTO default (original `SensorCreateRequest.into_sensor`).
func NewSensor(name, description string) Sensor {
	return NewSensorWithSensitivity(name, description, 50)
}

// NewSensorWithSensitivity builds a Sensor with an explicit sensitivity
// score, clamped to [0, 100], and derives the percept singular/plural
// display names from the sensor name.
func NewSensorWithSensitivity(name, description string, sensitivity int) Sensor {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 100 {
		sensitivity = 100
	}
	singular, plural := perceptNames(name)
	return Sensor{
		Name:             name,
		Description:      description,
		Enabled:          true,
		SensitivityScore: sensitivity,
		Ingress:          DefaultIngress(),
		PerceptSingular:  singular,
		PerceptPlural:    plural,
	}
}

// ChatSensorName is the always-present default sensor (§4.1), sensitivity
// 100, REST/text ingress.
const ChatSensorName = "chat"

// NewChatSensor builds the always-present default chat sensor.
func NewChatSensor() Sensor {
	return NewSensorWithSensitivity(ChatSensorName, "default chat sensor", 100)
}

// perceptNames derives the singular/plural percept display names from a
// sensor name: lowercase, trimmed, with a trailing "s" appended for the
// plural unless the name already ends in "s".
func perceptNames(name string) (singular, plural string) {
	singular = strings.ToLower(strings.TrimSpace(name))
	if strings.HasSuffix(singular, "s") {
		plural = singular
	} else {
		plural = singular + "s"
	}
	return singular, plural
}

// SenseUnread returns the unread slice of the queue and advances
// UnreadStart to the end of the queue (§4.1 invariant ii). Returns an
// empty slice (never nil-vs-empty distinguishing) when nothing is new.
func (s *Sensor) SenseUnread() []Percept {
	if s.UnreadStart >= len(s.Queue) {
		s.UnreadStart = len(s.Queue)
		return []Percept{}
	}
	unread := append([]Percept(nil), s.Queue[s.UnreadStart:]...)
	s.UnreadStart = len(s.Queue)
	return unread
}

// Enqueue appends a percept to the queue. The sensor name is stamped onto
// the percept at enqueue time, never by the caller.
func (s *Sensor) Enqueue(content, chatID string) {
	s.Queue = append(s.Queue, Percept{SensorName: s.Name, Content: content, ChatID: chatID})
}
