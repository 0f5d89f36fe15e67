package reporter

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pterm/pterm"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/pkg/logger"
)

// DefaultFile is the report written when no file name is given
const DefaultFile = "/tmp/portguard.out"

// Reporter appends handled events to a JSONL report file
type Reporter struct {
	mu             sync.Mutex
	events         []domain.ReportEvent
	eventsHashMap  map[string]bool
	Err            error
	outputFileName string
	file           *os.File
}

// NewReporter returns a new reporter
func NewReporter(outputFileName string) *Reporter {
	if outputFileName == "" {
		outputFileName = DefaultFile
		logger.Log.Debugf("using the default output file: %s", outputFileName)
	}

	var report = &Reporter{
		eventsHashMap:  make(map[string]bool, 0),
		outputFileName: outputFileName,
	}

	file, err := report.openReportFile()
	if err != nil {
		report.Err = fmt.Errorf("failed to open report file: %w", err)
		return report
	}

	report.file = file

	return report
}

// LoadAndPrint reads the report file and prints it as a table
func LoadAndPrint(path string) error {
	if path == "" {
		path = DefaultFile
	}

	f, err := os.OpenFile(path, os.O_RDONLY, os.ModePerm)
	if err != nil {
		return err
	}
	defer f.Close()

	r := Reporter{
		file:           f,
		outputFileName: path,
	}

	rd := bufio.NewReader(f)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}

		event := domain.ReportEvent{}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return err
		}
		r.events = append(r.events, event)
	}

	r.PrintReportTable()
	return nil
}

// WriteEvent adds an event to the report file. Repeated events for the same
// process, endpoint and event type are written once.
func (r *Reporter) WriteEvent(event domain.ReportEvent) {
	var key = fmt.Sprintf("%s|%d|%s|%s:%d", event.EventType, event.ProcessID, event.Protocol, event.Address, event.Port)
	var hash = hash(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.eventsHashMap[hash]; ok {
		logger.Log.Debugf("event [%s] already reported", key)
		return
	}

	r.events = append(r.events, event)
	r.eventsHashMap[hash] = true

	if r.file == nil {
		return
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("failed to marshal report event: %v", err)
		return
	}

	if _, err := r.file.WriteString(string(eventData) + "\n"); err != nil {
		logger.Log.Errorf("failed to write an event to file: %s %v", r.file.Name(), err)
	}
}

// Len returns the number of distinct events written
func (r *Reporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

// Close closes the report file
func (r *Reporter) Close() error {
	if r.file == nil {
		return nil
	}

	return r.file.Close()
}

func (r *Reporter) openReportFile() (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(r.outputFileName), os.ModePerm); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.OpenFile(r.outputFileName, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	return file, nil
}

// PrintReportTable prints the reported events
func (r *Reporter) PrintReportTable() {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Print("\n\n")
	data := pterm.TableData{
		{"Time", "Pid", "Comm", "Proto", "Address", "Event", "Risk", "Policy"},
	}

	for _, v := range r.events {
		data = append(data, []string{
			v.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(int64(v.ProcessID), 10),
			v.ProcessName,
			string(v.Protocol),
			fmt.Sprintf("%s:%d", v.Address, v.Port),
			v.EventType,
			v.Risk,
			v.Policy,
		})
	}

	render(data)
}

func render(data pterm.TableData) {
	if err := pterm.DefaultTable.WithHasHeader().WithRowSeparator("-").WithHeaderRowSeparator("-").WithData(data).Render(); err != nil {
		logger.Log.Errorf("failed to render table: %v", err)
	}
}

func hash(text string) string {
	hasher := md5.New()
	hasher.Write([]byte(text))

	return hex.EncodeToString(hasher.Sum(nil))
}
