package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected level to be debug, got %s", Log.GetLevel())
	}

	SetLevel("loud")
	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected level to be info, got %s", Log.GetLevel())
	}
}

func TestSetFormat(t *testing.T) {
	if err := SetFormat("json"); err != nil {
		t.Errorf("Expected error to be nil, got '%s'", err)
	}

	if _, ok := Log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected a json formatter, got %T", Log.Formatter)
	}

	if err := SetFormat("xml"); err == nil {
		t.Error("Expected an error for an unknown format")
	}

	if err := SetFormat("text"); err != nil {
		t.Errorf("Expected error to be nil, got '%s'", err)
	}
}
