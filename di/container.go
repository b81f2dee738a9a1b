// Package di 提供按名称注册组件的简单容器，供启动阶段装配服务与路由注册器。
//
// 业务对象仍通过构造函数显式接收依赖；容器只在组合根中使用。
package di

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"pflanzen/errors"
)

// IContainer 容器接口
type IContainer interface {
	// RegisterInstance 注册已构造的实例
	RegisterInstance(name string, instance any) error
	// RegisterSingleton 注册工厂函数，首次解析时调用一次
	RegisterSingleton(name string, factory any) error
	// Resolve 按名称解析
	Resolve(name string) (any, error)
	// ResolveTo 解析并赋值给 target 指针
	ResolveTo(name string, target any) error
	IsRegistered(name string) bool
	// GetRegisteredNames 已注册名称（升序）
	GetRegisteredNames() []string
}

// Container IContainer 的默认实现
//
// 工厂函数的参数按类型名从容器中解析，返回值可以是 (T) 或 (T, error)。
type Container struct {
	factories map[string]any
	instances map[string]any
	mutex     sync.RWMutex
}

var _ IContainer = (*Container)(nil)

// New 创建空容器
func New() *Container {
	return &Container{
		factories: make(map[string]any),
		instances: make(map[string]any),
	}
}

func (c *Container) RegisterInstance(name string, instance any) error {
	if instance == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "instance cannot be nil")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.registered(name) {
		return errors.NewError(errors.ErrCodeConflict, fmt.Sprintf("service %s already registered", name))
	}
	c.instances[name] = instance
	return nil
}

func (c *Container) RegisterSingleton(name string, factory any) error {
	if factory == nil || reflect.TypeOf(factory).Kind() != reflect.Func {
		return errors.NewError(errors.ErrCodeInvalidInput, "factory must be a function")
	}
	if reflect.TypeOf(factory).NumOut() == 0 {
		return errors.NewError(errors.ErrCodeInvalidInput, "factory must have a return value")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.registered(name) {
		return errors.NewError(errors.ErrCodeConflict, fmt.Sprintf("service %s already registered", name))
	}
	c.factories[name] = factory
	return nil
}

func (c *Container) Resolve(name string) (any, error) {
	c.mutex.RLock()
	inst, ok := c.instances[name]
	factory, hasFactory := c.factories[name]
	c.mutex.RUnlock()
	if ok {
		return inst, nil
	}
	if !hasFactory {
		return nil, errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf("service %s not registered", name))
	}

	inst, err := c.invoke(factory)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, fmt.Sprintf("failed to create service %s", name))
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.instances[name]; ok {
		return existing, nil
	}
	c.instances[name] = inst
	return inst, nil
}

func (c *Container) ResolveTo(name string, target any) error {
	inst, err := c.Resolve(name)
	if err != nil {
		return err
	}
	v := reflect.ValueOf(target)
	if target == nil || v.Kind() != reflect.Ptr {
		return errors.NewError(errors.ErrCodeInvalidInput, "target must be a non-nil pointer")
	}
	iv := reflect.ValueOf(inst)
	if !iv.Type().AssignableTo(v.Elem().Type()) {
		return errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("cannot assign %s to %s", iv.Type(), v.Elem().Type()))
	}
	v.Elem().Set(iv)
	return nil
}

func (c *Container) IsRegistered(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.registered(name)
}

func (c *Container) GetRegisteredNames() []string {
	c.mutex.RLock()
	names := make([]string, 0, len(c.instances)+len(c.factories))
	for k := range c.instances {
		names = append(names, k)
	}
	for k := range c.factories {
		if _, ok := c.instances[k]; !ok {
			names = append(names, k)
		}
	}
	c.mutex.RUnlock()
	sort.Strings(names)
	return names
}

// Collect 解析全部实现了 T 的组件（按名称升序）
func Collect[T any](c IContainer) ([]T, error) {
	var out []T
	for _, name := range c.GetRegisteredNames() {
		inst, err := c.Resolve(name)
		if err != nil {
			return nil, err
		}
		if v, ok := inst.(T); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Container) registered(name string) bool {
	_, inst := c.instances[name]
	_, factory := c.factories[name]
	return inst || factory
}

func (c *Container) invoke(factory any) (any, error) {
	fv := reflect.ValueOf(factory)
	ft := fv.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		inst, err := c.resolveParameter(ft.In(i))
		if err != nil {
			return nil, err
		}
		args[i] = reflect.ValueOf(inst)
	}
	results := fv.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		if err, ok := results[1].Interface().(error); ok {
			return nil, err
		}
	}
	return results[0].Interface(), nil
}

// resolveParameter 先按完整类型名，再按指针元素类型名查找
func (c *Container) resolveParameter(t reflect.Type) (any, error) {
	if c.IsRegistered(t.String()) {
		return c.Resolve(t.String())
	}
	if t.Kind() == reflect.Ptr && c.IsRegistered(t.Elem().String()) {
		return c.Resolve(t.Elem().String())
	}
	return nil, errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf("cannot resolve parameter type: %s", t))
}

// TypeName 返回值的类型名，可作为 RegisterInstance 的名称，使工厂参数可按类型解析
func TypeName(v any) string {
	return reflect.TypeOf(v).String()
}
