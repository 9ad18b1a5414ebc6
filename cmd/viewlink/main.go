/*
Copyright © 2019 the ViewLink authors.
This file is part of ViewLink.

ViewLink is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ViewLink is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ViewLink.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command viewlink is a command-line interface for linking the 3D views
// of reservoir and geomechanical cases.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/viewlink/linkutil"
)

func main() {
	if err := linkutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
