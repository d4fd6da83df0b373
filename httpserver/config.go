/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package httpserver

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/connpool/errors"
)

// Config describes one driver: the address it binds, the optional TLS
// section it pulls from the shared tlsregistry.Registry, and the pacing of
// its accept loop's own shutdown. Decoded from viper/toml into this
// struct, then Validate before NewDriver accepts it.
type Config struct {
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`
	Bind string `mapstructure:"bind" json:"bind" yaml:"bind" toml:"bind" validate:"required"`

	// TLSSection, when non-empty, names a section already registered in the
	// tlsregistry.Registry passed to NewDriver. Left empty, the driver
	// accepts plaintext sockets.
	TLSSection string `mapstructure:"tls_section" json:"tls_section" yaml:"tls_section" toml:"tls_section"`

	// AcceptTimeout bounds how long a single Accept call blocks before the
	// loop re-checks for a shutdown request; it never delays a live
	// connection, only how quickly Stop notices the loop should exit.
	AcceptTimeout time.Duration `mapstructure:"accept_timeout" json:"accept_timeout" yaml:"accept_timeout" toml:"accept_timeout" validate:"gte=0"`

	// ShutdownTimeout bounds how long Stop waits for the scheduler's pools
	// to drain before returning anyway.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gte=0"`
}

// Validate mirrors connpool.Config.Validate: run the struct tags, fold every
// failing field into a single liberr.Error chain.
func (c Config) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)

	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorConfigValidate.Error(e)
	}

	out := ErrorConfigValidate.Error(nil)

	for _, e := range err.(validator.ValidationErrors) {
		//nolint goerr113
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}

	if out.HasParent() {
		return out
	}

	return nil
}

// DefaultConfig returns a plaintext driver bound to the given address with a
// one-second accept-loop poll and a ten-second drain budget.
func DefaultConfig(name, bind string) Config {
	return Config{
		Name:            name,
		Bind:            bind,
		AcceptTimeout:   time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
