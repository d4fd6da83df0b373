/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package logger

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	libctx "github.com/nabbar/connpool/context"
	"github.com/sirupsen/logrus"
)

// FuncLog returns the Logger a component should log through. Components take
// a FuncLog instead of a Logger so the backing instance can be swapped (e.g.
// on configuration reload) without re-wiring every caller.
type FuncLog func() Logger

// Logger is the ambient logging contract every package in this module takes
// instead of calling fmt/log directly.
type Logger interface {
	io.Writer

	SetLevel(lvl Level)
	GetLevel() Level

	SetFields(field Fields)
	GetFields() Fields

	SetOutput(w io.Writer)

	Clone() Logger

	Debug(message string, data interface{}, args ...interface{})
	Info(message string, data interface{}, args ...interface{})
	Warning(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})
	Fatal(message string, data interface{}, args ...interface{})
	Panic(message string, data interface{}, args ...interface{})

	// Entry returns a new Entry bound to this logger's backing logrus.Logger.
	Entry(lvl Level, message string, args ...interface{}) *Entry
}

const (
	keyLevel uint8 = iota
	keyFields
	keyLogrus
)

type lgr struct {
	m sync.RWMutex
	x libctx.Config[uint8]
	c *atomic.Value
}

// New returns a Logger writing to io.Discard at InfoLevel. Call SetOutput to
// attach a real destination (a file, stdout, a syslog writer, ...).
func New(ctx context.Context) Logger {
	l := &lgr{
		x: libctx.New[uint8](ctx),
		c: new(atomic.Value),
	}

	obj := logrus.New()
	obj.SetOutput(io.Discard)
	obj.SetFormatter(defaultFormatter())

	l.x.Store(keyLogrus, obj)
	l.SetLevel(InfoLevel)
	l.SetFields(NewFields())

	return l
}

func defaultFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		ForceQuote:             true,
		QuoteEmptyFields:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
		TimestampFormat:        "2006-01-02T15:04:05.000Z07:00",
	}
}

func (l *lgr) getLogrus() *logrus.Logger {
	if i, k := l.x.Load(keyLogrus); !k {
		return nil
	} else if v, k := i.(*logrus.Logger); !k {
		return nil
	} else {
		return v
	}
}

func (l *lgr) SetOutput(w io.Writer) {
	if log := l.getLogrus(); log != nil {
		log.SetOutput(w)
	}
}

// Write implements io.Writer so a Logger can be handed to log.New or any
// other consumer that expects a plain writer; each call logs at InfoLevel.
func (l *lgr) Write(p []byte) (int, error) {
	l.Entry(InfoLevel, string(p)).Log()
	return len(p), nil
}

func (l *lgr) SetLevel(lvl Level) {
	l.x.Store(keyLevel, lvl)
	if log := l.getLogrus(); log != nil {
		log.SetLevel(lvl.Logrus())
	}
}

func (l *lgr) GetLevel() Level {
	if i, k := l.x.Load(keyLevel); !k {
		return NilLevel
	} else if v, k := i.(Level); !k {
		return NilLevel
	} else {
		return v
	}
}

func (l *lgr) SetFields(field Fields) {
	l.x.Store(keyFields, field)
}

func (l *lgr) GetFields() Fields {
	if i, k := l.x.Load(keyFields); !k {
		return NewFields()
	} else if v, k := i.(Fields); !k {
		return NewFields()
	} else {
		return v
	}
}

func (l *lgr) Clone() Logger {
	n := &lgr{
		x: l.x.Clone(l.x.GetContext()),
		c: new(atomic.Value),
	}

	n.x.Store(keyLogrus, l.getLogrus())
	n.SetLevel(l.GetLevel())
	n.SetFields(l.GetFields())

	return n
}

func (l *lgr) Entry(lvl Level, message string, args ...interface{}) *Entry {
	log := l.getLogrus
	msg := message

	if len(args) > 0 {
		msg = fmt.Sprintf(message, args...)
	}

	return &Entry{
		log:     log,
		Level:   lvl,
		Message: msg,
		Fields:  l.GetFields(),
	}
}

func (l *lgr) Debug(message string, data interface{}, args ...interface{}) {
	l.Entry(DebugLevel, message, args...).DataSet(data).Log()
}

func (l *lgr) Info(message string, data interface{}, args ...interface{}) {
	l.Entry(InfoLevel, message, args...).DataSet(data).Log()
}

func (l *lgr) Warning(message string, data interface{}, args ...interface{}) {
	l.Entry(WarnLevel, message, args...).DataSet(data).Log()
}

func (l *lgr) Error(message string, data interface{}, args ...interface{}) {
	l.Entry(ErrorLevel, message, args...).DataSet(data).Log()
}

func (l *lgr) Fatal(message string, data interface{}, args ...interface{}) {
	l.Entry(FatalLevel, message, args...).DataSet(data).Log()
}

func (l *lgr) Panic(message string, data interface{}, args ...interface{}) {
	l.Entry(PanicLevel, message, args...).DataSet(data).Log()
}
