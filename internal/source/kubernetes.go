// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

var ErrUnknownSourceType = errors.New("unknown source type")

func CreateInClusterClient() (*dynamic.DynamicClient, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, err
	}

	client, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func CreateKubeConfigClient(kubeConfigPath string) (*dynamic.DynamicClient, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeConfigPath)
	if err != nil {
		return nil, err
	}

	client, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// KubernetesSource adapts one dynamic resource client to the watch source
// boundary. Expired resource versions surface as informer.ErrVersionGone.
type KubernetesSource struct {
	client    dynamic.Interface
	gvr       schema.GroupVersionResource
	namespace string
}

func NewKubernetesSource(client dynamic.Interface, resourceConfig *config.Resource) *KubernetesSource {
	return &KubernetesSource{
		client:    client,
		gvr:       resourceConfig.GetGroupVersionResource(),
		namespace: resourceConfig.Kubernetes.Namespace,
	}
}

func (s *KubernetesSource) resource() dynamic.ResourceInterface {
	if s.namespace != "" {
		return s.client.Resource(s.gvr).Namespace(s.namespace)
	}
	return s.client.Resource(s.gvr)
}

func (s *KubernetesSource) List(ctx context.Context) ([]*unstructured.Unstructured, string, error) {
	list, err := s.resource().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("could not list %s: %w", s.gvr.String(), err)
	}

	var objects = make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		objects = append(objects, &list.Items[i])
	}

	return objects, list.GetResourceVersion(), nil
}

func (s *KubernetesSource) Watch(ctx context.Context, fromVersion string) (informer.Stream, error) {
	w, err := s.resource().Watch(ctx, metav1.ListOptions{ResourceVersion: fromVersion})
	if err != nil {
		if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
			return nil, informer.ErrVersionGone
		}
		return nil, err
	}

	stream := newKubernetesStream(w)
	go stream.translate()
	return stream, nil
}

type kubernetesStream struct {
	watcher watch.Interface
	events  chan informer.Event
	done    chan struct{}
	once    sync.Once
}

func newKubernetesStream(watcher watch.Interface) *kubernetesStream {
	return &kubernetesStream{
		watcher: watcher,
		events:  make(chan informer.Event),
		done:    make(chan struct{}),
	}
}

func (s *kubernetesStream) Events() <-chan informer.Event {
	return s.events
}

// Stop releases the translate goroutine even when the consumer already
// walked away without draining the stream.
func (s *kubernetesStream) Stop() {
	s.watcher.Stop()
	s.once.Do(func() {
		close(s.done)
	})
}

// send hands one event to the consumer. It reports false once the stream
// was stopped.
func (s *kubernetesStream) send(event informer.Event) bool {
	select {
	case s.events <- event:
		return true

	case <-s.done:
		return false
	}
}

func (s *kubernetesStream) translate() {
	defer close(s.events)

	for event := range s.watcher.ResultChan() {
		switch event.Type {

		case watch.Added, watch.Modified, watch.Deleted:
			obj, ok := event.Object.(*unstructured.Unstructured)
			if !ok {
				continue
			}
			if !s.send(informer.Event{
				Type:    translateEventType(event.Type),
				Object:  obj,
				Version: obj.GetResourceVersion(),
			}) {
				return
			}

		case watch.Error:
			err := apierrors.FromObject(event.Object)
			if apierrors.IsResourceExpired(err) || apierrors.IsGone(err) {
				err = informer.ErrVersionGone
			}
			s.send(informer.Event{Type: informer.Error, Err: err})
			return

		case watch.Bookmark:
			// Not requested; nothing to record.
		}
	}
}

func translateEventType(t watch.EventType) informer.EventType {
	switch t {
	case watch.Added:
		return informer.Added
	case watch.Modified:
		return informer.Modified
	default:
		return informer.Deleted
	}
}
