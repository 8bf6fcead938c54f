// Package runtime manages the life-cycle of the long running services of a
// fork choice node.
package runtime

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "registry")

// Service is a long running component of the node registered into a ServiceRegistry.
type Service interface {
	// Start spawns any goroutines required by the service.
	Start()
	// Stop terminates all goroutines belonging to the service,
	// blocking until they are all terminated.
	Stop() error
	// Status returns error if the service is not considered healthy.
	Status() error
}

// ServiceRegistry keeps one service per concrete type so that services
// depending on each other share the same instance.
type ServiceRegistry struct {
	lock         sync.RWMutex
	services     map[reflect.Type]Service // map of types to services.
	serviceTypes []reflect.Type           // registration order.
}

// NewServiceRegistry returns an empty registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[reflect.Type]Service),
	}
}

// StartAll starts each service in order of registration.
func (s *ServiceRegistry) StartAll() {
	s.lock.RLock()
	defer s.lock.RUnlock()
	log.WithField("count", len(s.serviceTypes)).Debug("Starting services")
	for _, kind := range s.serviceTypes {
		log.WithField("service", kind.String()).Debug("Starting service")
		go s.services[kind].Start()
	}
}

// StopAll stops every service in reverse order of registration. Services
// failing to stop are logged and do not prevent the others from stopping.
func (s *ServiceRegistry) StopAll() {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for i := len(s.serviceTypes) - 1; i >= 0; i-- {
		kind := s.serviceTypes[i]
		if err := s.services[kind].Stop(); err != nil {
			log.WithError(err).WithField("service", kind.String()).Error("Could not stop service")
		}
	}
}

// Statuses returns the result of Status for every registered service.
func (s *ServiceRegistry) Statuses() map[reflect.Type]error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	m := make(map[reflect.Type]error, len(s.serviceTypes))
	for _, kind := range s.serviceTypes {
		m[kind] = s.services[kind].Status()
	}
	return m
}

// RegisterService adds a service to the registry. Only one service of a
// given type may be registered.
func (s *ServiceRegistry) RegisterService(service Service) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	kind := reflect.TypeOf(service)
	if _, exists := s.services[kind]; exists {
		return errors.Errorf("service already exists: %v", kind)
	}
	s.services[kind] = service
	s.serviceTypes = append(s.serviceTypes, kind)
	return nil
}

// FetchService sets the value pointed to by service to the registered
// service of the same type, so that callers share the registered instance.
func (s *ServiceRegistry) FetchService(service interface{}) error {
	if reflect.TypeOf(service).Kind() != reflect.Ptr {
		return errors.Errorf("input must be of pointer type, received value type instead: %T", service)
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	element := reflect.ValueOf(service).Elem()
	if running, ok := s.services[element.Type()]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return errors.Errorf("unknown service: %T", service)
}
