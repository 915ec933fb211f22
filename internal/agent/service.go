// Package agent runs the portal's local web service under the platform
// service manager (systemd, launchd or the Windows SCM).
package agent

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kardianos/service"
	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/daemon"
)

const (
	ServiceName        = "portal"
	ServiceDisplayName = "Bluebird Portal"
	ServiceDescription = "Local web service for the Bluebird customer portal"
)

var (
	ErrAlreadyStarted = errors.New("agent: web service already started")
	ErrNoBuilder      = errors.New("agent: program cannot start a web service")
)

// Builder creates the web service when the program starts. Building lazily
// keeps service install and status commands from opening the session store.
type Builder func() (*daemon.Server, error)

// ServiceProgram implements service.Interface
type ServiceProgram struct {
	build Builder

	mu     sync.Mutex
	server *daemon.Server
}

func NewServiceProgram(build Builder) *ServiceProgram {
	return &ServiceProgram{build: build}
}

func (p *ServiceProgram) Start(_ service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server != nil {
		return ErrAlreadyStarted
	}
	if p.build == nil {
		return ErrNoBuilder
	}

	logrus.Infoln("Portal service starting")

	server, err := p.build()
	if err != nil {
		return fmt.Errorf("failed to build web service: %w", err)
	}

	if err := server.Start(); err != nil {
		return err
	}

	p.server = server

	logrus.Infoln("Portal service is running")
	return nil
}

func (p *ServiceProgram) Stop(_ service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	logrus.Infoln("Portal service stopping")

	if p.server != nil {
		p.server.Stop()
		p.server = nil
	}
	return nil
}

// Running reports whether Start has brought the web service up.
func (p *ServiceProgram) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.server != nil
}

// CreateService wraps the program for the platform service manager.
// Arguments are what the manager passes to the executable, normally
// "serve" plus any --config flag.
func CreateService(program *ServiceProgram, arguments ...string) (service.Service, error) {
	svcConfig, err := getServiceConfig(arguments)
	if err != nil {
		return nil, err
	}

	return service.New(program, svcConfig)
}

func getServiceConfig(arguments []string) (*service.Config, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}

	if len(arguments) == 0 {
		arguments = []string{"serve"}
	}

	return &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
		Executable:  exePath,
		Arguments:   arguments,
	}, nil
}
