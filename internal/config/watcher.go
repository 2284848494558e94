// internal/config/watcher.go
package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// handleConfigChange reloads the configuration after viper re-read the file.
// An invalid file keeps the previous configuration in place.
func (cl *ConfigLoader) handleConfigChange(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cl.l.Infof("Config file changed: %s", e.Name)

	// viper keeps the previous values when the file does not parse
	if err := cl.v.ReadInConfig(); err != nil {
		cl.handleError(fmt.Errorf("error reading config file: %w", err))
		return
	}

	newConfig, err := cl.load()
	if err != nil {
		cl.handleError(err)
		return
	}
	cl.updateConfig(newConfig)
}

func (cl *ConfigLoader) handleError(err error) {
	cl.l.Errorf("Error reloading configuration: %v", err)
	cl.mu.Lock()
	cl.lastError = err
	cl.mu.Unlock()
}

func (cl *ConfigLoader) updateConfig(newConfig *GlobalConfig) {
	cl.mu.Lock()
	cl.currentConfig = newConfig
	cl.lastError = nil
	cl.mu.Unlock()
	cl.notifyWatchers(newConfig)
}

// notifyWatchers calls all registered watchers with the new configuration
func (cl *ConfigLoader) notifyWatchers(newConfig *GlobalConfig) {
	cl.watchersMu.RLock()
	defer cl.watchersMu.RUnlock()
	for _, watcher := range cl.watchers {
		watcher(newConfig)
	}
}
