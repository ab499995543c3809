package excel

// Columns names the header cells of the partition files.
type Columns struct {
	Sensor    string
	Variable  string
	Value     string
	Timestamp string
	Suspect   string
	Units     string
	Longitude string
	Latitude  string
}

// DefaultColumns returns the header names used by the Urban Observatory exports.
func DefaultColumns() Columns {
	return Columns{
		Sensor:    "Sensor Name",
		Variable:  "Variable",
		Value:     "Value",
		Timestamp: "Timestamp",
		Suspect:   "Flagged as Suspect Reading",
		Units:     "Units",
		Longitude: "Sensor Centroid Longitude",
		Latitude:  "Sensor Centroid Latitude",
	}
}

// File base names inside a partition directory. The first existing extension wins.
const (
	DataFileBase    = "data"
	SensorsFileBase = "sensors"
)

var (
	dataExtensions    = []string{".csv", ".xlsx", ".jsonl"}
	sensorsExtensions = []string{".csv", ".xlsx"}
)

// timestampLayouts are tried in order when parsing a reading's timestamp. Values
// without a zone are read as UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}
