package common

// All units are in metric:
// - Speed is in m/s
// - Distance is in meters
// - Time is in seconds
// - Elevation is in meters above sea level

const SpeedOfDrivingMin = 4.47 // or 16 km/h or 10 mph

// SpeedOfTubeMean is the average speed of an underground metro train,
// stops included.
const SpeedOfTubeMean = 9.2 // or 33 km/h

const SpeedOfCommercialFlight = 250.0 // or 900 km/h

const SpeedOfSound = 343.0

const ElevationCommercialFlightCruising = 10668.0
