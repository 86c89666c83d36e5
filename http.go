package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxRequestBodyBytes = 1024

// timerController is the part of the Controller the HTTP API drives.
type timerController interface {
	Status() Status
	OnRunRequested()
	OnPostponeRequested()
	OnResetRequested()
	OnSettingsChanged(Settings) error
}

type outputTimer struct {
	Seconds  int64  `json:"seconds"`
	Text     string `json:"text"`
	End      string `json:"end,omitempty"`
	State    string `json:"state"`
	Finished bool   `json:"finished"`
	RunID    string `json:"run_id,omitempty"`
}

type route struct {
	path    string
	handler http.HandlerFunc
}

func routes(c timerController, logger *zap.Logger) []route {
	return []route{
		{"/timer", timerHandler(c, logger)},
		{"/timer/run", buttonHandler("run", c.OnRunRequested, logger)},
		{"/timer/postpone", buttonHandler("postpone", c.OnPostponeRequested, logger)},
		{"/timer/reset", buttonHandler("reset", c.OnResetRequested, logger)},
	}
}

func timerHandler(c timerController, logger *zap.Logger) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			logger.Debug("GET request", zap.String("user_agent", req.UserAgent()))
			st := c.Status()
			output := outputTimer{
				Seconds:  st.Seconds,
				Text:     st.Text,
				State:    st.State.String(),
				Finished: st.State == Finished,
				RunID:    st.RunID,
			}
			if !st.End.IsZero() {
				output.End = st.End.Format(time.RFC3339)
			}
			writeJSON(res, output, logger)

		case http.MethodPut:
			logger.Debug("PUT request", zap.String("user_agent", req.UserAgent()))
			req.Body = http.MaxBytesReader(res, req.Body, maxRequestBodyBytes)
			decoder := json.NewDecoder(req.Body)
			decoder.DisallowUnknownFields()

			// missing fields keep their defaults
			settings := DefaultSettings()
			if err := decoder.Decode(&settings); err != nil {
				logger.Info("PUT request failed", zap.Error(err))
				http.Error(res, "Invalid request format", http.StatusBadRequest)
				return
			}
			if err := c.OnSettingsChanged(settings); err != nil {
				if errors.Is(err, ErrInvalidDurationFormat) {
					http.Error(res, "Duration must be formatted as HH:MM", http.StatusBadRequest)
					return
				}
				logger.Error("Failed to apply settings", zap.Error(err))
				http.Error(res, "Unable to apply settings", http.StatusInternalServerError)
				return
			}
			writeJSON(res, map[string]bool{"success": true}, logger)

		default:
			logger.Debug("HTTP request not supported", zap.String("method", req.Method))
			http.Error(res, "Not supported", http.StatusNotImplemented)
		}
	}
}

// buttonHandler maps a POST onto a host entry point
func buttonHandler(name string, press func(), logger *zap.Logger) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(res, "Not supported", http.StatusNotImplemented)
			return
		}
		logger.Info("Button pressed", zap.String("button", name), zap.String("user_agent", req.UserAgent()))
		press()
		writeJSON(res, map[string]bool{"success": true}, logger)
	}
}

func writeJSON(res http.ResponseWriter, v any, logger *zap.Logger) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		http.Error(res, "Unable to output timer", http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	res.Write(jsonData)
}
