package tle

import "time"

// Source is one already-read catalog text blob, e.g. the contents of stations.tle.
type Source struct {
	Name string
	Data []byte
}

// Entry is a single satellite's two-line element set, decoded and validated.
type Entry struct {
	Name    string
	NORADID int
	Epoch   time.Time
	Line1   string
	Line2   string

	// Index is the entry's 3-line group number within its source.
	Index int

	Elements Elements
}

// Elements holds the decoded classical elements of a TLE.
// Angles are in degrees, mean motion in revolutions per day.
type Elements struct {
	Classification   byte
	IntlDesignator   string
	MeanMotionDot    float64 // rev/day^2, halved as published
	MeanMotionDDot   float64 // rev/day^3, divided by six as published
	BStar            float64 // 1/earth radii
	ElementSetNumber int

	Inclination      float64
	RAAN             float64
	Eccentricity     float64
	ArgPerigee       float64
	MeanAnomaly      float64
	MeanMotion       float64
	RevolutionNumber int
}

// PeriodMinutes returns the orbital period implied by the mean motion.
func (e Elements) PeriodMinutes() float64 {
	if e.MeanMotion <= 0 {
		return 0
	}
	return 1440.0 / e.MeanMotion
}
