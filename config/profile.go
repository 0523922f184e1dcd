package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CfgFilename is the profile file in the home directory.
const CfgFilename = ".bluepad.json"

// Profile is a named connection string.
type Profile struct {
	Name       string `json:"name"`
	ConnString string `json:"connstring"`
}

func (p *Profile) String() string {
	return fmt.Sprintf("name=%s connstring=%s", p.Name, p.ConnString)
}

// ProfileMgr loads and saves profiles.
type ProfileMgr struct {
	filename string
	profiles map[string]*Profile
}

// NewProfileMgr reads ~/.bluepad.json. A missing file is an empty set of
// profiles.
func NewProfileMgr() (*ProfileMgr, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return nil, errors.Wrap(err, "home directory")
	}
	return NewProfileMgrAt(filepath.Join(dir, CfgFilename))
}

// NewProfileMgrAt reads profiles from filename.
func NewProfileMgrAt(filename string) (*ProfileMgr, error) {
	pm := &ProfileMgr{
		filename: filename,
		profiles: map[string]*Profile{},
	}

	log.Debugf("Reading connection profiles from %s", filename)
	blob, err := ioutil.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return pm, nil
		}
		return nil, errors.Wrap(err, "read profiles")
	}

	var profiles []*Profile
	if err := json.Unmarshal(blob, &profiles); err != nil {
		return nil, errors.Wrapf(err, "error reading connection profile config (%s)", filename)
	}
	for _, p := range profiles {
		pm.profiles[p.Name] = p
	}
	return pm, nil
}

// List returns the profiles sorted by name.
func (pm *ProfileMgr) List() []*Profile {
	list := make([]*Profile, 0, len(pm.profiles))
	for _, p := range pm.profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

func (pm *ProfileMgr) save() error {
	b, err := json.MarshalIndent(pm.List(), "", "    ")
	if err != nil {
		return errors.WithStack(err)
	}
	if err := ioutil.WriteFile(pm.filename, b, 0644); err != nil {
		return errors.Wrap(err, "write profiles")
	}
	return nil
}

// Add stores p after checking that its connection string parses.
func (pm *ProfileMgr) Add(p *Profile) error {
	if p.Name == "" {
		return errors.New("profile name is empty")
	}
	if _, err := ParseConnString(p.ConnString); err != nil {
		return err
	}
	pm.profiles[p.Name] = p
	return pm.save()
}

func (pm *ProfileMgr) Delete(name string) error {
	if pm.profiles[name] == nil {
		return errors.Errorf("connection profile \"%s\" doesn't exist", name)
	}
	delete(pm.profiles, name)
	return pm.save()
}

func (pm *ProfileMgr) Get(name string) (*Profile, error) {
	p := pm.profiles[name]
	if p == nil {
		return nil, errors.Errorf("connection profile \"%s\" doesn't exist", name)
	}
	return p, nil
}
